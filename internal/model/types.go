package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one finished simulation run.
type RunRecord struct {
	VersionedRecord
	ID             string `json:"id"`
	CreatedAtUTC   string `json:"created_at_utc"`
	PopulationSize int    `json:"population_size"`
	Generations    int    `json:"generations"`
	Seed           int64  `json:"seed"`
	ConfigXML      string `json:"config_xml"`
}

// StatisticSummary is the persisted output of one statistic.
type StatisticSummary struct {
	VersionedRecord
	TypeTag    string    `json:"type"`
	Identifier string    `json:"identifier"`
	Report     string    `json:"report"`
	Samples    []float64 `json:"samples,omitempty"`
}
