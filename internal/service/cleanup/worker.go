package cleanup

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// emptyGameAge is how long a game without tracks is kept before removal
const emptyGameAge = time.Hour

type RoomEvictor interface {
	EvictIdle(ttl time.Duration) int
}

type LimiterPruner interface {
	Prune() int
}

type GameJanitor interface {
	DeleteEmptyGames(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Worker runs the periodic maintenance jobs on a gocron scheduler
type Worker struct {
	Rooms     RoomEvictor
	Limiter   LimiterPruner
	Games     GameJanitor // Optional, can be nil
	RoomTTL   time.Duration
	scheduler gocron.Scheduler
}

func NewWorker(rooms RoomEvictor, limiter LimiterPruner, games GameJanitor, roomTTL time.Duration) *Worker {
	return &Worker{Rooms: rooms, Limiter: limiter, Games: games, RoomTTL: roomTTL}
}

// Start registers the jobs and starts the scheduler
func (w *Worker) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	jobs := []struct {
		every time.Duration
		task  func()
	}{
		{time.Minute, w.pruneRateLimits},
		{5 * time.Minute, w.evictRooms},
		{time.Hour, w.deleteEmptyGames},
	}
	for _, j := range jobs {
		if _, err := sched.NewJob(gocron.DurationJob(j.every), gocron.NewTask(j.task)); err != nil {
			return err
		}
	}

	sched.Start()
	w.scheduler = sched
	log.Println("[CLEANUP] Background worker started")
	return nil
}

func (w *Worker) Stop() {
	if w.scheduler == nil {
		return
	}
	if err := w.scheduler.Shutdown(); err != nil {
		log.Printf("[CLEANUP] Error stopping scheduler: %v", err)
	}
}

// RunOnce executes every job immediately
func (w *Worker) RunOnce() {
	w.pruneRateLimits()
	w.evictRooms()
	w.deleteEmptyGames()
}

func (w *Worker) evictRooms() {
	if w.Rooms == nil {
		return
	}
	if n := w.Rooms.EvictIdle(w.RoomTTL); n > 0 {
		log.Printf("[CLEANUP] Evicted %d idle rooms", n)
	}
}

func (w *Worker) pruneRateLimits() {
	if w.Limiter == nil {
		return
	}
	w.Limiter.Prune()
}

func (w *Worker) deleteEmptyGames() {
	if w.Games == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deletedCount, err := w.Games.DeleteEmptyGames(ctx, emptyGameAge)
	if err != nil {
		log.Printf("[CLEANUP] Error deleting empty games: %v", err)
		return
	}
	if deletedCount > 0 {
		log.Printf("[CLEANUP] Removed %d empty games from database", deletedCount)
	}
}
