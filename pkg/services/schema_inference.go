package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
	"github.com/ekaya-inc/ekaya-erd/pkg/workerpool"
)

// SchemaInferenceService infers candidate keys, relationships and table roles
// for a set of tables.
type SchemaInferenceService interface {
	// Infer runs key extraction, relationship matching and role classification
	// over the whole table set. Any failure aborts the run and is reported as an
	// *apperrors.Error tagged with the failing stage.
	Infer(ctx context.Context, tables models.TableSet) (*models.InferenceResult, error)
}

// SchemaInferenceConfig tunes the inference pipeline.
type SchemaInferenceConfig struct {
	IncludeEmptyTables bool
	ExtractionWorkers  int
}

type schemaInferenceService struct {
	config SchemaInferenceConfig
	pool   *workerpool.Pool
	logger *zap.Logger
}

var _ SchemaInferenceService = (*schemaInferenceService)(nil)

// NewSchemaInferenceService creates a new schema inference service.
func NewSchemaInferenceService(config SchemaInferenceConfig, logger *zap.Logger) SchemaInferenceService {
	logger = logger.Named("schema-inference")
	return &schemaInferenceService{
		config: config,
		pool:   workerpool.New(workerpool.Config{MaxConcurrent: config.ExtractionWorkers}, logger),
		logger: logger,
	}
}

func (s *schemaInferenceService) Infer(ctx context.Context, tables models.TableSet) (*models.InferenceResult, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New()
	start := time.Now()
	logger := s.logger.With(zap.String("run_id", runID.String()))
	logger.Info("Starting schema inference", zap.Int("tables", len(tables)))

	keys, err := s.extractKeys(ctx, tables)
	if err != nil {
		logger.Error("Key extraction failed", zap.Error(err))
		return nil, err
	}

	var relationships []models.Relationship
	err = runStage(apperrors.StageRelationshipMatching, func() error {
		var err error
		relationships, err = MatchRelationships(tables, keys)
		if err != nil {
			return err
		}
		return checkRelationships(keys, relationships)
	})
	if err != nil {
		logger.Error("Relationship matching failed", zap.Error(err))
		return nil, err
	}

	var roles []models.RoleAssignment
	err = runStage(apperrors.StageRoleClassification, func() error {
		var err error
		roles, err = ClassifyRoles(tables, keys, relationships)
		if err != nil {
			return err
		}
		return checkRoles(tables, roles)
	})
	if err != nil {
		logger.Error("Role classification failed", zap.Error(err))
		return nil, err
	}

	connectivity := Connectivity(tables, relationships)
	LogConnectivity(len(relationships), connectivity, logger)

	logger.Info("Schema inference complete",
		zap.Int("relationships", len(relationships)),
		zap.Duration("elapsed", time.Since(start)))

	return &models.InferenceResult{
		RunID:         runID,
		Tables:        tables.Summarize(),
		Keys:          keys,
		Relationships: relationships,
		Roles:         roles,
		Connectivity:  connectivity,
	}, nil
}

// extractKeys runs candidate-key extraction for every table on the worker pool.
// Results come back in table order.
func (s *schemaInferenceService) extractKeys(ctx context.Context, tables models.TableSet) ([]models.TableKeys, error) {
	opts := KeyExtractionOptions{IncludeEmptyTables: s.config.IncludeEmptyTables}

	items := make([]workerpool.WorkItem[models.TableKeys], len(tables))
	for i, table := range tables {
		items[i] = workerpool.WorkItem[models.TableKeys]{
			ID: table.Name,
			Execute: func(ctx context.Context) (models.TableKeys, error) {
				return ExtractCandidateKeys(table, opts), nil
			},
		}
	}

	results := workerpool.Process(ctx, s.pool, items, nil)
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewInferenceError(apperrors.StageKeyExtraction, "inference cancelled", err)
	}

	keys := make([]models.TableKeys, len(results))
	for i, r := range results {
		if r.Err != nil {
			var panicErr *workerpool.PanicError
			if errors.As(r.Err, &panicErr) {
				return nil, apperrors.NewInferenceError(apperrors.StageKeyExtraction,
					fmt.Sprintf("extracting keys of %q panicked", r.ID), r.Err)
			}
			return nil, apperrors.NewInferenceError(apperrors.StageKeyExtraction,
				fmt.Sprintf("extracting keys of %q", r.ID), r.Err)
		}
		if r.Result.Table != tables[i].Name {
			return nil, apperrors.NewInferenceError(apperrors.StageKeyExtraction,
				fmt.Sprintf("keys at position %d belong to %q, expected %q", i, r.Result.Table, tables[i].Name), nil)
		}
		keys[i] = r.Result
	}
	return keys, nil
}

// runStage runs fn and turns any error or panic into an inference error for stage.
func runStage(stage apperrors.Stage, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInferenceError(stage, "stage panicked", fmt.Errorf("%v", r))
		}
	}()
	if err := fn(); err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.NewInferenceError(stage, "stage failed", err)
	}
	return nil
}

func checkRelationships(keys []models.TableKeys, relationships []models.Relationship) error {
	unique := make(map[string]map[string]bool, len(keys))
	for _, k := range keys {
		set := make(map[string]bool, len(k.Unique))
		for _, c := range k.Unique {
			set[c] = true
		}
		unique[k.Table] = set
	}
	for _, rel := range relationships {
		if rel.KeyTable == rel.OtherTable {
			return fmt.Errorf("self relationship on %q", rel.KeyTable)
		}
		if !unique[rel.KeyTable][rel.Column] {
			return fmt.Errorf("relationship column %q is not a key of %q", rel.Column, rel.KeyTable)
		}
	}
	return nil
}

func checkRoles(tables models.TableSet, roles []models.RoleAssignment) error {
	if len(roles) != len(tables) {
		return fmt.Errorf("classified %d tables, expected %d", len(roles), len(tables))
	}
	for i, table := range tables {
		if roles[i].Table != table.Name {
			return fmt.Errorf("role at position %d belongs to %q, expected %q", i, roles[i].Table, table.Name)
		}
		if roles[i].Role != models.TableRoleFact && roles[i].Role != models.TableRoleDimension {
			return fmt.Errorf("table %q has invalid role %q", table.Name, roles[i].Role)
		}
	}
	return nil
}
