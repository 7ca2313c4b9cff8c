package jobs

import (
	"log"
	"sync"
	"time"
)

// TokenCleaner deletes expired and revoked refresh tokens
type TokenCleaner interface {
	CleanupExpiredTokens() (int64, error)
}

// Purger drops cached entries
type Purger interface {
	Purge()
}

// LimiterCleaner forgets rate limiters idle longer than maxIdle
type LimiterCleaner interface {
	Cleanup(maxIdle time.Duration) int
}

// MaintenanceJob periodically removes stale tokens, cached listings and idle
// rate limiters. It never touches listing or review state.
type MaintenanceJob struct {
	tokens   TokenCleaner
	cache    Purger
	limiters LimiterCleaner
	interval time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMaintenanceJob creates the job. cache and limiters may be nil.
func NewMaintenanceJob(tokens TokenCleaner, cache Purger, limiters LimiterCleaner, interval time.Duration) *MaintenanceJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &MaintenanceJob{
		tokens:   tokens,
		cache:    cache,
		limiters: limiters,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the maintenance job
func (j *MaintenanceJob) Start() {
	go j.run()
	log.Printf("🚀 Maintenance job started (every %v)", j.interval)
}

// Stop stops the maintenance job. Safe to call more than once.
func (j *MaintenanceJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
		log.Println("🛑 Maintenance job stopped")
	})
}

func (j *MaintenanceJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce()
		case <-j.stopChan:
			return
		}
	}
}

// RunOnce performs a single maintenance pass
func (j *MaintenanceJob) RunOnce() {
	if j.tokens != nil {
		removed, err := j.tokens.CleanupExpiredTokens()
		if err != nil {
			log.Printf("❌ Token cleanup failed: %v", err)
		} else if removed > 0 {
			log.Printf("✅ Removed %d expired refresh tokens", removed)
		}
	}

	if j.cache != nil {
		j.cache.Purge()
	}

	if j.limiters != nil {
		if dropped := j.limiters.Cleanup(j.interval); dropped > 0 {
			log.Printf("✅ Dropped %d idle rate limiters", dropped)
		}
	}
}
