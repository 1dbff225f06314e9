package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/adapters/tablesource"
	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// LoadTableSource loads a table set from a registered source type ("csv",
// "postgres", "sqlserver", "mysql", "sqlite"). Failures other than context
// errors are reported as input errors at the load stage.
func LoadTableSource(ctx context.Context, sourceType string, opts tablesource.Options, logger *zap.Logger) (models.TableSet, error) {
	tables, err := tablesource.Load(ctx, sourceType, opts, logger)
	if err != nil {
		return nil, asLoadError(err, "load "+sourceType+" tables")
	}
	return tables, nil
}

func asLoadError(err error, msg string) error {
	if apperrors.KindOf(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewInputError(apperrors.StageLoad, msg, err)
}
