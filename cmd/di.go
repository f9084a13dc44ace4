package cmd

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kidoz/insightvm-workflow-go/internal/config"
	"github.com/kidoz/insightvm-workflow-go/internal/insightvm"
	"github.com/kidoz/insightvm-workflow-go/internal/inventory"
	"github.com/kidoz/insightvm-workflow-go/internal/notify"
	"github.com/kidoz/insightvm-workflow-go/internal/report"
	"github.com/kidoz/insightvm-workflow-go/internal/workflow"
)

func initWorkflow(cfg *config.Config, log *zap.Logger) (*workflow.Workflow, error) {
	var w *workflow.Workflow
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, log),
		insightvm.Module,
		fx.Provide(
			report.NewProcessor,
			notify.NewMailer,
			workflow.New,
		),
		fx.Populate(&w),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return w, nil
}

func initClient(cfg *config.Config, log *zap.Logger) (*insightvm.Client, error) {
	var c *insightvm.Client
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, log),
		insightvm.Module,
		fx.Populate(&c),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func initCollector(cfg *config.Config, log *zap.Logger) (*inventory.Collector, error) {
	var c *inventory.Collector
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, log),
		insightvm.Module,
		fx.Provide(inventory.NewCollector),
		fx.Populate(&c),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return c, nil
}
