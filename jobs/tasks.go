// Package jobs runs background maintenance over the referential.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogReindex recomputes drifted normalized keys across the catalog.
	TaskCatalogReindex = "catalog:reindex"
)

// CatalogReindexPayload contains options for the reindex job.
type CatalogReindexPayload struct {
	Requester string `json:"demandeur"`
}

// NewCatalogReindexTask builds a reindex task.
func NewCatalogReindexTask(requester string) (*asynq.Task, error) {
	body, err := json.Marshal(CatalogReindexPayload{Requester: requester})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogReindex, body, asynq.Queue(QueueDefault)), nil
}
