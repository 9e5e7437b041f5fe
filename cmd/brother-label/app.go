package main

import (
	"fmt"

	"github.com/nantokaworks/brother-label/internal/catalog"
	"github.com/nantokaworks/brother-label/internal/dispatch"
	"github.com/nantokaworks/brother-label/internal/env"
	"github.com/nantokaworks/brother-label/internal/localdb"
	"github.com/nantokaworks/brother-label/internal/output"
	"github.com/nantokaworks/brother-label/internal/pdfbox"
	"github.com/nantokaworks/brother-label/internal/raster"
	"github.com/nantokaworks/brother-label/internal/settings"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"github.com/nantokaworks/brother-label/internal/shared/paths"
	"go.uber.org/zap"
)

// app holds the collaborators shared by every command.
type app struct {
	catalog    *catalog.Catalog
	settings   *settings.SettingsManager
	printer    output.Printer
	rasterizer raster.Rasterizer
	boxes      pdfbox.Reader
}

func loadCatalog() (*catalog.Catalog, error) {
	if env.Value.CatalogPath == "" {
		return catalog.Default()
	}
	logger.Info("Loading device catalog", zap.String("path", env.Value.CatalogPath))
	return catalog.LoadFile(env.Value.CatalogPath)
}

func setupApp() (*app, error) {
	if err := paths.EnsureDataDirs(); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}
	db, err := localdb.SetupDB(paths.GetDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	c, err := loadCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load device catalog: %w", err)
	}

	sm := settings.NewSettingsManager(db, c)
	// 環境変数からの移行を先に行い、残りをデフォルトで埋める
	if err := sm.MigrateFromEnv(); err != nil {
		logger.Warn("Failed to migrate settings from environment", zap.Error(err))
	}
	if err := sm.InitializeDefaultSettings(); err != nil {
		return nil, err
	}

	var printer output.Printer
	if env.Value.DryRunMode {
		logger.Info("Dry-run mode enabled, labels will not be sent to the printer")
		printer = &output.DryRunPrinter{}
	} else {
		p, err := output.NewBrotherQLPrinter(env.Value.BrotherQL)
		if err != nil {
			return nil, err
		}
		printer = p
	}

	return &app{
		catalog:    c,
		settings:   sm,
		printer:    printer,
		rasterizer: raster.PdftoppmRasterizer{Path: env.Value.Pdftoppm, DPI: env.Value.RenderDPI},
		boxes:      pdfbox.PDFCPUReader{},
	}, nil
}

func (a *app) dispatcher() *dispatch.Dispatcher {
	return dispatch.New(a.catalog, a.printer, a.rasterizer, a.boxes)
}

func (a *app) close() {
	if err := localdb.Close(); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}
}
