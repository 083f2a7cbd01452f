package types

import "time"

// JobStatus is the lifecycle state of a crawl job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// CrawlJob records one asynchronous crawl.
type CrawlJob struct {
	ID        string    `json:"id"`
	RecipeID  string    `json:"recipe_id"`
	Status    JobStatus `json:"status"`
	Log       string    `json:"log"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
