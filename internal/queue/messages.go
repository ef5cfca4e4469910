package queue

// QueueCrawlMsg asks a worker to crawl Wikidata into a snapshot. An empty
// Occupations list means discover and crawl every scholarly occupation.
type QueueCrawlMsg struct {
	Message     string   `json:"message"`
	SnapshotID  string   `json:"snapshot_id"`
	Occupations []string `json:"occupations,omitempty"`
}

// QueueRankMsg asks a worker to execute a prepared ranking run.
type QueueRankMsg struct {
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}
