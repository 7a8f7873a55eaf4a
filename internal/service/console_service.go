package service

import (
	"context"
	"fmt"
	"strings"

	"storefront-api/internal/docstore"
	"storefront-api/internal/models"
	"storefront-api/internal/util"

	"go.uber.org/zap"
)

// QueryRunner executes caller supplied SQL
type QueryRunner interface {
	RunQuery(ctx context.Context, query string, params []interface{}) ([]map[string]interface{}, error)
}

// CommandExecutor runs an allow-listed document command
type CommandExecutor interface {
	Execute(ctx context.Context, cmd docstore.Command) (interface{}, error)
}

// ConsoleService backs the two passthrough endpoints. Either store may be
// nil when this process is not connected to it.
type ConsoleService struct {
	enabled bool
	sql     QueryRunner
	mongo   CommandExecutor
	logger  *zap.Logger
}

// NewConsoleService creates the console; enabled mirrors ALLOW_SQL
func NewConsoleService(enabled bool, sql QueryRunner, mongo CommandExecutor) *ConsoleService {
	return &ConsoleService{
		enabled: enabled,
		sql:     sql,
		mongo:   mongo,
		logger:  util.GetLogger(),
	}
}

// RunSQL executes a parameterized statement and returns its rows
func (s *ConsoleService) RunSQL(ctx context.Context, req *models.SQLQueryRequest) (*models.SQLQueryResult, error) {
	if !s.enabled {
		return nil, ErrConsoleDisabled
	}
	if s.sql == nil {
		return nil, fmt.Errorf("%w: postgres is not configured", ErrUnavailable)
	}

	stmt := strings.TrimSpace(req.Statement())
	if stmt == "" {
		return nil, &ValidationError{Field: "sql", Message: "is required"}
	}

	rows, err := s.sql.RunQuery(ctx, stmt, req.Params)
	if err != nil {
		util.ConsoleCommandsTotal.WithLabelValues(models.BackendPostgres, "sql", "error").Inc()
		return nil, &CommandError{Err: err}
	}

	util.ConsoleCommandsTotal.WithLabelValues(models.BackendPostgres, "sql", "ok").Inc()
	s.logger.Info("Console SQL executed", zap.Int("rows", len(rows)))
	return &models.SQLQueryResult{Rows: rows, RowCount: len(rows)}, nil
}

// RunCommand parses and executes a document command. The result is relaxed
// Extended JSON of the form {"result": ...}.
func (s *ConsoleService) RunCommand(ctx context.Context, req *models.MongoCommandRequest) ([]byte, error) {
	if !s.enabled {
		return nil, ErrConsoleDisabled
	}
	if s.mongo == nil {
		return nil, fmt.Errorf("%w: mongodb is not configured", ErrUnavailable)
	}

	cmd, err := ParseMongoCommand(req)
	if err != nil {
		return nil, &ValidationError{Field: "command", Message: err.Error()}
	}

	result, err := s.mongo.Execute(ctx, cmd)
	if err != nil {
		util.ConsoleCommandsTotal.WithLabelValues(models.BackendMongo, cmd.Op.Name(), "error").Inc()
		return nil, &CommandError{Err: err}
	}
	util.ConsoleCommandsTotal.WithLabelValues(models.BackendMongo, cmd.Op.Name(), "ok").Inc()

	out, err := docstore.MarshalResult(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	s.logger.Info("Console command executed",
		zap.String("collection", cmd.Collection),
		zap.String("method", cmd.Op.Name()))
	return out, nil
}

// ParseMongoCommand accepts either request form
func ParseMongoCommand(req *models.MongoCommandRequest) (docstore.Command, error) {
	if strings.TrimSpace(req.Command) != "" {
		return docstore.ParseCommand(req.Command)
	}
	if req.Collection == "" || req.Method == "" {
		return docstore.Command{}, fmt.Errorf("%w: either command or collection and method are required", docstore.ErrInvalidCommand)
	}
	return docstore.NewCommand(req.Collection, req.Method, req.Args)
}
