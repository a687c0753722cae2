package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brainboard/internal/bot"
	"brainboard/internal/config"
	"brainboard/internal/repository"
	"brainboard/internal/service"
	"brainboard/internal/store"
	"brainboard/internal/view"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	account, err := userRepo.EnsureAccount(ctx, cfg.AccountID)
	if err != nil {
		log.Fatalf("account: %v", err)
	}
	session := store.Session{UID: account.UID}
	log.Printf("[info] serving account %s", session.UID)

	cache := store.NewLocalCache()
	adapter := store.NewAdapter(taskRepo, session, cache)

	scheduler := service.NewSchedulerService(service.NewSystemTimer(), cfg.FireFallback)
	taskSvc := service.NewTaskService(adapter, scheduler, cfg.LeadTime)
	reminderSvc := service.NewReminderService(adapter, scheduler, cfg.SnoozeDelay)
	scheduler.OnFire(reminderSvc.HandleFire)

	list := view.NewList(nil)
	sub, err := adapter.Subscribe(ctx, list.Apply)
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, session, taskSvc, reminderSvc, list)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}
	reminderSvc.SetNotifier(telegramBot)

	resync := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tasks, err := adapter.List(jobCtx)
		if err != nil {
			log.Printf("resync: %v", err)
			return
		}
		scheduler.Resync(tasks, cfg.LeadTime)
	}
	resync()

	runner := service.NewCronRunner(time.Local)
	if _, err := runner.ScheduleInterval(cfg.ResyncInterval, resync); err != nil {
		log.Fatalf("schedule resync: %v", err)
	}
	if _, err := runner.ScheduleDaily(cfg.DigestTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendDailyDigest(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("digest: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule digest: %v", err)
	}
	runner.Start()
	defer runner.Stop()

	log.Println("Brainboard reminder service started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
