package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"github.com/amitRaDev/GMS/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool sends job-closed push notifications to all stored staff
// subscriptions, off the gate's hot path.
type WorkerPool struct {
	size    int
	jobs    chan string
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("push worker %d started", id)
	for {
		select {
		case jobCardID := <-wp.jobs:
			wp.sendJobClosed(ctx, jobCardID)
		case <-ctx.Done():
			log.Printf("push worker %d shutting down", id)
			return
		}
	}
}

// DispatchJobClosed queues a job-closed notification. It never blocks; if the
// queue is full the notification is dropped, which is acceptable for a
// best-effort channel.
func (wp *WorkerPool) DispatchJobClosed(jobCardID string) {
	select {
	case wp.jobs <- jobCardID:
	default:
		log.Printf("push queue full, dropping notification for job %s", jobCardID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan string {
	return wp.jobs
}

// sendJobClosed fetches subscriptions and notifies them about the closed job.
func (wp *WorkerPool) sendJobClosed(ctx context.Context, jobCardID string) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("error fetching push subscriptions: %v", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	var jobCard model.JobCard
	if err := wp.db.WithContext(ctx).Preload("Vehicle").First(&jobCard, "id = ?", jobCardID).Error; err != nil {
		log.Printf("error fetching job card %s for push: %v", jobCardID, err)
		return
	}

	vehicleNumber := jobCard.VehicleID
	if jobCard.Vehicle != nil {
		vehicleNumber = jobCard.Vehicle.VehicleNumber
	}
	message := fmt.Sprintf("Job %s closed. Vehicle %s has left the garage.", jobCard.JobNumber, vehicleNumber)

	log.Printf("sending %d push notifications for job %s", len(subscriptions), jobCard.JobNumber)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification and prunes expired
// subscriptions.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("error sending push to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("push subscription %s expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
