package commands

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/paperdash/internal/cache"
	"github.com/i474232898/paperdash/internal/calendar"
	"github.com/i474232898/paperdash/internal/config"
	"github.com/i474232898/paperdash/internal/dashboard"
	"github.com/i474232898/paperdash/internal/display"
	"github.com/i474232898/paperdash/internal/facts"
	"github.com/i474232898/paperdash/internal/logx"
	"github.com/i474232898/paperdash/internal/news"
	"github.com/i474232898/paperdash/internal/printer"
	"github.com/i474232898/paperdash/internal/render"
	"github.com/i474232898/paperdash/internal/sysinfo"
	"github.com/i474232898/paperdash/internal/theme"
	"github.com/i474232898/paperdash/internal/transit"
	"github.com/i474232898/paperdash/internal/weather"
	"github.com/i474232898/paperdash/internal/weather/providers"
)

// deps is everything a command needs short of the display and the loop.
type deps struct {
	cfg      *config.AppConfig
	log      *logrus.Logger
	sources  cache.Sources
	cache    *cache.Controller
	pipeline *render.Pipeline
	theme    theme.Theme
}

func loadConfig() (*config.AppConfig, *logrus.Logger, error) {
	cfg, err := config.Load(logx.Bootstrap())
	if err != nil {
		return nil, nil, printer.Error("Configuration is invalid", err.Error(), []string{
			"Check the variables in your environment or .env file",
		})
	}
	log, err := logx.New(printer.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, printer.Error("Logger setup failed", err.Error(), nil)
	}
	return cfg, log, nil
}

// wire builds sources, cache and render pipeline from the environment.
func wire() (*deps, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	th, err := theme.Load(cfg.Theme)
	if err != nil {
		return nil, printer.Error("Theme could not be loaded", err.Error(), []string{
			"Set THEME to mono, bwry or a path to a .yml theme file",
		})
	}

	r, err := buildRenderer(cfg, th, log)
	if err != nil {
		return nil, printer.Error("No renderer available", err.Error(), []string{
			"Install chromium or set CHROMIUM_PATH",
			"Set RENDERER=canvas to draw without a browser",
		})
	}

	src := buildSources(cfg, &http.Client{Timeout: cfg.SourceTimeout}, log)
	ctrl := cache.New(src, cache.Options{
		SlowInterval:  cfg.SlowInterval,
		SourceTimeout: cfg.SourceTimeout,
		MaxStaleness:  cfg.MaxStaleness,
	}, log)

	return &deps{
		cfg:      cfg,
		log:      log,
		sources:  src,
		cache:    ctrl,
		pipeline: render.NewPipeline(r, th, log),
		theme:    th,
	}, nil
}

func buildSources(cfg *config.AppConfig, hc *http.Client, log logrus.FieldLogger) cache.Sources {
	loc := weather.Location{Lat: cfg.Latitude, Lon: cfg.Longitude, Zone: cfg.Zone}

	var provs []weather.Provider
	for _, name := range cfg.WeatherProviders {
		switch name {
		case "openweather":
			provs = append(provs, providers.NewOpenWeatherProvider(hc, cfg.OpenWeatherAPIKey, loc))
		case "weatherapi":
			provs = append(provs, providers.NewWeatherAPIProvider(hc, cfg.WeatherAPIKey, loc))
		case "openmeteo":
			provs = append(provs, providers.NewOpenMeteoProvider(hc, loc))
		}
	}

	return cache.Sources{
		Weather:  weather.NewChain(log, provs...),
		Calendar: calendar.New(hc, cfg.CalendarURL, cfg.Zone),
		News:     news.New(hc, cfg.NewsFeeds),
		Transit:  transit.New(hc, cfg.TfNSWAPIKey, cfg.BusStopID, cfg.Zone).WithMaxDepartures(cfg.MaxDepartures),
		System:   sysinfo.New(sysinfo.HostProbes()),
	}
}

func buildRenderer(cfg *config.AppConfig, th theme.Theme, log logrus.FieldLogger) (render.Renderer, error) {
	switch cfg.Renderer {
	case "canvas":
		return render.NewCanvasRenderer(th)
	case "chromium":
		var candidates []string
		if cfg.ChromiumPath != "" {
			candidates = []string{cfg.ChromiumPath}
		}
		browser, err := render.FindChromium(candidates...)
		if err != nil {
			return nil, err
		}
		return render.NewHTMLRenderer(browser, th)
	case "auto", "":
		candidates := render.ChromiumPaths
		if cfg.ChromiumPath != "" {
			candidates = append([]string{cfg.ChromiumPath}, candidates...)
		}
		browser, err := render.FindChromium(candidates...)
		if errors.Is(err, render.ErrNoBrowser) {
			log.Warn("render: chromium not found, drawing with the built-in canvas")
			return render.NewCanvasRenderer(th)
		}
		if err != nil {
			return nil, err
		}
		return render.NewHTMLRenderer(browser, th)
	default:
		return nil, fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}
}

func (d *deps) dashboardOptions() dashboard.Options {
	return dashboard.Options{
		Zone:  d.cfg.Zone,
		Theme: d.theme,
		Facts: facts.NewPicker(nil),
	}
}

// closeSink releases the panel, logging rather than returning a failure.
func closeSink(s display.Sink, log logrus.FieldLogger) {
	if err := s.Close(); err != nil {
		log.WithError(err).Warn("display: close failed")
	}
}
