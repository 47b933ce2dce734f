// Package logging builds the structured zap logger shared by the CLI,
// the HTTP server and the file layer.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: coloured console output for humans
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	logger.Info("volume mounted", zap.String("backend", "memory"))
//	manager := file.NewManager(driver, cfg).WithLogger(logger.Named("file"))
package logging
