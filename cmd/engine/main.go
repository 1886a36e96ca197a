package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/aurahome/synergy-engine/internal/app"
)

type homeList []string

func (l *homeList) String() string { return strings.Join(*l, ",") }
func (l *homeList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var homes homeList
	var inventoryDir string
	var schedule string
	var once bool
	flag.Var(&homes, "home", "home id to run discovery for (repeatable)")
	flag.StringVar(&inventoryDir, "inventory", "./inventory", "directory with per-home entity inventory JSON files")
	flag.StringVar(&schedule, "cron", "", "cron schedule for periodic discovery (empty with -once runs a single cycle)")
	flag.BoolVar(&once, "once", false, "run one discovery cycle and exit")
	flag.Parse()

	if len(homes) == 0 {
		fmt.Println("at least one -home is required")
		os.Exit(2)
	}

	application, err := app.New(inventoryDir)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runAll := func() {
		for _, home := range homes {
			if ctx.Err() != nil {
				return
			}
			if _, err := application.Engine.RunDiscovery(ctx, home); err != nil {
				application.Log.Error("Discovery run failed", "home_id", home, "error", err)
			}
		}
	}

	if once || schedule == "" {
		runAll()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, runAll); err != nil {
		application.Log.Fatal("Invalid cron schedule", "schedule", schedule, "error", err)
	}
	application.Log.Info("Starting periodic discovery", "schedule", schedule, "homes", homes.String())
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}
