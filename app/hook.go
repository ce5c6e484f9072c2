package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// WaitForShutdown drains HTTP requests, then closes the queue, the activity
// transport and the database.
func (app *App) WaitForShutdown(srv *http.Server) error {
	logger := app.Observability.Logger
	logger.Info("Shutting down application")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := app.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("Application shut down gracefully")
	return nil
}
