package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"hydrateMeAPI/internal/types/hydration"
	"hydrateMeAPI/internal/types/preference"
	"hydrateMeAPI/utils"
)

// PushNotificationProvider delivers a composed reminder to the user's
// devices. The real implementation lives in internal/notification (FCM);
// tests inject a mock.
type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]any) error
	CancelPush(ctx context.Context, tokens []DeviceToken, tag string) error
}

type DeviceToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

const reminderTag = "hydration-reminder"

// NotificationService implements the store's Notifier port. Composition
// happens on the caller's goroutine; delivery runs on a small worker pool so
// a slow push never stalls the store's writer.
type NotificationService struct {
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *pushJob
	stopChan     chan struct{}
	wg           sync.WaitGroup

	mu     sync.Mutex
	tokens []DeviceToken
}

type pushJob struct {
	title  string
	body   string
	data   map[string]any
	cancel bool
}

func NewNotificationService() *NotificationService {
	s := &NotificationService{
		workers:  3,
		jobQueue: make(chan *pushJob, 100),
		stopChan: make(chan struct{}),
	}
	s.startWorkers()
	return s
}

// SetPushProvider injects the real provider from main.go. Without one the
// service logs and drops jobs.
func (s *NotificationService) SetPushProvider(provider PushNotificationProvider) {
	s.pushProvider = provider
}

// RegisterDevice adds a delivery target. Tokens live in memory; devices
// re-register on every app start.
func (s *NotificationService) RegisterDevice(token DeviceToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.Token == token.Token {
			return
		}
	}
	s.tokens = append(s.tokens, token)
	log.Printf("Registered device token (%s), %d total", token.Platform, len(s.tokens))
}

func (s *NotificationService) deviceTokens() []DeviceToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DeviceToken{}, s.tokens...)
}

// ShowReminder composes and queues a hydration reminder carrying the running
// total, progress and the quick-add options.
func (s *NotificationService) ShowReminder(todayTotal hydration.Milliliters, progress hydration.Percent, quickAdd []preference.Cup, unit preference.LiquidUnit) {
	amounts := make([]int, 0, len(quickAdd))
	for _, cup := range quickAdd {
		amounts = append(amounts, int(cup.Milliliters))
	}

	job := &pushJob{
		title: "Hydration Reminder",
		body:  utils.ReminderMessage(todayTotal),
		data: map[string]any{
			"tag":         reminderTag,
			"today_total": int(todayTotal),
			"progress":    progress.Format(),
			"quick_add":   fmt.Sprint(amounts),
			"unit":        string(unit),
		},
	}

	select {
	case s.jobQueue <- job:
	case <-time.After(5 * time.Second):
		log.Println("Failed to queue reminder notification: queue full")
	}
}

// CancelReminder takes a visible reminder down, e.g. right after the user
// logs intake.
func (s *NotificationService) CancelReminder() {
	select {
	case s.jobQueue <- &pushJob{cancel: true}:
	default:
		log.Println("Failed to queue reminder cancellation: queue full")
	}
}

// Clear drops every visible notification.
func (s *NotificationService) Clear() {
	s.CancelReminder()
}

func (s *NotificationService) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

func (s *NotificationService) worker() {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.jobQueue:
			s.processJob(job)
		case <-s.stopChan:
			return
		}
	}
}

func (s *NotificationService) processJob(job *pushJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens := s.deviceTokens()
	if s.pushProvider == nil || len(tokens) == 0 {
		log.Printf("Skipping push: Tokens=%d, ProviderSet=%v", len(tokens), s.pushProvider != nil)
		return
	}

	var err error
	if job.cancel {
		err = s.pushProvider.CancelPush(ctx, tokens, reminderTag)
	} else {
		err = s.pushProvider.SendPush(ctx, tokens, job.title, job.body, job.data)
	}
	if err != nil {
		log.Printf("Push delivery failed: %v", err)
	}
}

// Stop drains the workers gracefully.
func (s *NotificationService) Stop() {
	log.Println("Stopping notification service...")
	close(s.stopChan)
	s.wg.Wait()
	log.Println("Notification service stopped")
}

// NoopNotifier satisfies the Notifier port without delivering anything. Used
// in tests and when no push credentials are configured.
type NoopNotifier struct{}

func (NoopNotifier) ShowReminder(hydration.Milliliters, hydration.Percent, []preference.Cup, preference.LiquidUnit) {
}
func (NoopNotifier) CancelReminder() {}
func (NoopNotifier) Clear()          {}
