package perftest

import (
	"embed"

	"github.com/perfhub/perfhub/modules/perftest/infrastructure/persistence"
	"github.com/perfhub/perfhub/modules/perftest/jtl"
	"github.com/perfhub/perfhub/modules/perftest/presentation/controllers"
	"github.com/perfhub/perfhub/modules/perftest/services"
	"github.com/perfhub/perfhub/pkg/application"
	"github.com/perfhub/perfhub/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/perftest-schema.sql
var migrationFiles embed.FS

// SchemaSQL returns the module's schema, applied by the server at boot.
func SchemaSQL() (string, error) {
	data, err := migrationFiles.ReadFile("infrastructure/persistence/schema/perftest-schema.sql")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	capabilityRepo := persistence.NewCapabilityRepository()
	testRunRepo := persistence.NewTestRunRepository()

	extractor := jtl.NewExtractor(jtl.Config{
		MaxFileSize:       conf.Results.MaxUploadSize,
		AllowedExtensions: conf.Results.Extensions(),
	})
	aggregatorCfg := jtl.AggregatorConfig{SampleCap: conf.Results.SampleCap}

	runService := services.NewTestRunService(
		testRunRepo,
		capabilityRepo,
		extractor,
		aggregatorCfg,
		app.EventPublisher(),
	)
	app.RegisterServices(
		services.NewCapabilityService(capabilityRepo, app.EventPublisher()),
		runService,
		services.NewResultService(testRunRepo, capabilityRepo),
		services.NewExcelExportService(runService),
	)

	app.RegisterControllers(
		controllers.NewCapabilitiesController(app),
		controllers.NewTestRunsController(app),
	)

	return nil
}

func (m *Module) Name() string {
	return "perftest"
}
