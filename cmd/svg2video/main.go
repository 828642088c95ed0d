package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gogpu/gg"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/director"
	"github.com/ivlev/svg2video/internal/effects"
	"github.com/ivlev/svg2video/internal/engine"
	"github.com/ivlev/svg2video/internal/progress"
	"github.com/ivlev/svg2video/internal/source"
	"github.com/ivlev/svg2video/internal/system"
)

var BuildVersion = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/svg", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	configPtr := flag.String("config", "", "YAML-файл с настройками (флаги имеют приоритет)")
	inputPtr := flag.String("input", "", "Путь к SVG (по умолчанию: самый свежий файл в input/svg/)")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	titlePtr := flag.String("title", "", "Заголовок, который печатается под рисунком")
	durationPtr := flag.Float64("duration", 0, "Длительность прорисовки контура (сек)")
	holdPtr := flag.Float64("hold", 0, "Пауза после прорисовки (сек)")
	bgPtr := flag.String("bg", "", "Цвет фона #rrggbb")
	formatPtr := flag.String("format", "", "Формат: mp4, webm, avi")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	easingPtr := flag.String("easing", "", "Кривая прорисовки: "+strings.Join(effects.Names(), ", "))
	realtimePtr := flag.Bool("realtime", false, "Выдавать кадры с частотой 60 Гц, как на экране")
	planPtr := flag.String("plan", "", "YAML-план пакетной обработки (latest - самый свежий в internal/plans/)")
	generatePlanPtr := flag.String("generate-plan", "", "Создать план из всех SVG в папке и выйти")
	workersPtr := flag.Int("workers", 0, "Параллельные задачи плана")
	previewPtr := flag.String("preview", "", "Сохранить превью исходного SVG в PNG")
	brokerPtr := flag.String("mqtt-broker", "", "MQTT брокер для прогресса, например tcp://localhost:1883")
	topicPtr := flag.String("mqtt-topic", "", "MQTT топик для прогресса")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности и дописать benchmark.log")
	verbosePtr := flag.Bool("v", false, "Подробный лог")

	flag.Parse()

	level := slog.LevelInfo
	if *verbosePtr {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	gg.SetLogger(logger)

	if *generatePlanPtr != "" {
		generatePlan(*generatePlanPtr)
		return
	}

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка конфигурации: %v", err)
		}
		cfg = loaded
		fmt.Printf("[*] Конфигурация: %s\n", *configPtr)
	}

	// Флаги, заданные явно, перекрывают YAML
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputPath = *inputPtr
		case "output":
			cfg.OutputVideo = *outputPtr
		case "title":
			cfg.Title = *titlePtr
		case "duration":
			cfg.DrawDuration = *durationPtr
		case "hold":
			cfg.HoldDuration = *holdPtr
		case "bg":
			cfg.Background = *bgPtr
		case "format":
			cfg.Format = strings.ToLower(*formatPtr)
		case "quality":
			cfg.Quality = *qualityPtr
		case "easing":
			cfg.Easing = *easingPtr
		case "realtime":
			cfg.Realtime = *realtimePtr
		case "workers":
			cfg.Workers = *workersPtr
		case "preview":
			cfg.PreviewPath = *previewPtr
		case "mqtt-broker":
			cfg.MQTT.Broker = *brokerPtr
		case "mqtt-topic":
			cfg.MQTT.Topic = *topicPtr
		case "stats":
			cfg.ShowStats = *statsPtr
		}
	})
	cfg.BuildVersion = BuildVersion

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	if cfg.Format == config.FormatMP4 {
		if cfg.VideoEncoder == "" {
			cfg.VideoEncoder = system.GetBestH264Encoder()
			if cfg.VideoEncoder != "libx264" {
				fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
			}
		}
		if cfg.Quality == 0 {
			cfg.Quality = system.DefaultQuality(cfg.VideoEncoder)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter, closeReporter := buildReporter(cfg, logger)
	defer closeReporter()

	var statsMu sync.Mutex
	var collected []engine.Stats
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithReporter(reporter),
		engine.WithFramePool(system.NewFramePool(config.Width, config.Height)),
		engine.WithStatsFunc(func(st engine.Stats) {
			statsMu.Lock()
			collected = append(collected, st)
			statsMu.Unlock()
		}),
	}
	if cfg.Realtime {
		// Свой тикер на каждую сессию, иначе параллельные задачи делят 60 Гц
		opts = append(opts, engine.WithSchedulerFunc(func() engine.Scheduler {
			return engine.NewPaced(config.FPS)
		}))
	}

	if *planPtr != "" {
		runPlan(ctx, *planPtr, cfg, opts)
	} else {
		runSingle(ctx, cfg, opts)
	}

	if cfg.ShowStats {
		showStats(cfg, collected)
	}
}

func runSingle(ctx context.Context, cfg *config.Config, opts []engine.Option) {
	if cfg.InputPath == "" {
		latest, err := system.FindLatestSVG("input/svg")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите SVG в input/svg/", err)
		}
		cfg.InputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", cfg.InputPath)
	}
	if cfg.OutputVideo == "" {
		cfg.OutputVideo = director.OutputPath(strings.ReplaceAll(cfg.InputPath, " ", "_"), cfg.Extension(), time.Now())
	}

	anim, _ := cfg.Animation()
	fmt.Println("--- [PROJECT: SVG OUTLINE] ---")
	fmt.Printf("[*] Источник: %s | Заголовок: %q\n", cfg.InputPath, cfg.Title)
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS | Кадров: %d | Формат: %s\n",
		config.Width, config.Height, config.FPS, anim.TotalFrames(), cfg.Format)
	fmt.Println("-----------------------------")

	if cfg.PreviewPath != "" {
		writePreview(cfg.InputPath, cfg.PreviewPath)
	}

	if _, err := engine.CaptureFile(ctx, cfg, opts...); err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
}

func runPlan(ctx context.Context, path string, cfg *config.Config, opts []engine.Option) {
	if path == "latest" {
		latest, err := director.FindLatestPlan()
		if err != nil {
			log.Fatalf("[-] Ошибка: %v", err)
		}
		path = latest
	}
	plan, err := director.ReadPlan(path)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения плана: %v", err)
	}
	fmt.Printf("[*] Используется план: %s | Задач: %d | Потоков: %d\n", path, len(plan.Jobs), cfg.Workers)

	results, err := engine.RunPlan(ctx, plan, cfg, cfg.Workers, opts...)
	for _, r := range results {
		if r.Err == nil {
			fmt.Printf("[>] Ready: %s\n", r.Output)
		}
	}
	if err != nil {
		log.Fatalf("[-] Ошибки плана:\n%v", err)
	}

	fmt.Printf("[+++] Успех! Готово клипов: %d\n", len(results))
}

func generatePlan(dir string) {
	plan, err := director.GeneratePlan(dir)
	if err != nil {
		log.Fatalf("[-] Ошибка генерации плана: %v", err)
	}
	path := director.GeneratePlanPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
	if err := director.WritePlan(plan, path); err != nil {
		log.Fatalf("[-] Ошибка записи плана: %v", err)
	}
	fmt.Printf("[+++] План сохранен: %s (задач: %d)\n", path, len(plan.Jobs))
}

func writePreview(input, out string) {
	data, err := os.ReadFile(input)
	if err != nil {
		log.Printf("[!] Не удалось прочитать SVG для превью: %v", err)
		return
	}
	img, err := source.RenderPreview(data, source.DefaultPreviewHeight)
	if err != nil {
		log.Printf("[!] Не удалось построить превью: %v", err)
		return
	}
	if err := source.WritePNG(out, img); err != nil {
		log.Printf("[!] Не удалось сохранить превью: %v", err)
		return
	}
	fmt.Printf("[*] Превью: %s\n", out)
}

// buildReporter prints progress to the console and, when a broker is
// configured, publishes it over MQTT.
func buildReporter(cfg *config.Config, logger *slog.Logger) (progress.Reporter, func()) {
	var lastStep = -1
	var mu sync.Mutex
	console := progress.Func(func(u progress.Update) {
		mu.Lock()
		defer mu.Unlock()
		step := int(u.Percent) / 10
		if step == lastStep {
			return
		}
		lastStep = step
		fmt.Printf("[>] %s: %.0f%%\n", u.Stage, u.Percent)
	})

	reporters := []progress.Reporter{console, progress.Log{Logger: logger, Level: slog.LevelDebug}}
	closeFn := func() {}

	if cfg.MQTT.Broker != "" {
		m, err := progress.DialMQTT(progress.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Logger:   logger,
		})
		if err != nil {
			log.Printf("[!] MQTT недоступен, прогресс не публикуется: %v", err)
		} else {
			fmt.Printf("[*] Прогресс публикуется в %s (%s)\n", cfg.MQTT.Broker, cfg.MQTT.Topic)
			reporters = append(reporters, m)
			closeFn = m.Close
		}
	}
	return progress.Multi(reporters...), closeFn
}

func showStats(cfg *config.Config, collected []engine.Stats) {
	var host *system.HostStats
	if hs, err := system.ReadHostStats(); err == nil {
		host = &hs
	} else {
		log.Printf("[!] Не удалось получить статистику системы: %v", err)
	}

	now := time.Now()
	for _, st := range collected {
		fmt.Print(st.Report(cfg.BuildVersion, host))
		if err := engine.AppendBenchmark(engine.BenchmarkLog, st.LogEntry(now, cfg.BuildVersion, cfg.InputPath)); err != nil {
			fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
		}
	}
}
