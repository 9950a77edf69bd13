// Package forensics is the client for the remote image-forensics service.
// It defines the wire shapes the service returns and an HTTP client that
// performs upload, analysis, lineage, social-spread, and report calls.
package forensics

import "time"

// RelationshipDerivedFrom marks the primary lineage edge between two images.
const RelationshipDerivedFrom = "derived_from"

// File is an image selected for analysis.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Upload is the service's response to an image upload.
type Upload struct {
	ImageID    string `json:"image_id"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"file_size"`
	UploadTime string `json:"upload_time"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Format     string `json:"format"`
	PHash      string `json:"phash"`
	DHash      string `json:"dhash"`
	AHash      string `json:"ahash"`
}

// Score is the deepfake score bundle: an overall score, five sub-scores,
// a boolean flag, and a confidence label.
type Score struct {
	OverallScore             float64 `json:"overall_score"`
	FaceSwapScore            float64 `json:"face_swap_score"`
	GANArtifactScore         float64 `json:"gan_artifact_score"`
	CompressionInconsistency float64 `json:"compression_inconsistency"`
	NoiseInconsistency       float64 `json:"noise_inconsistency"`
	ELAScore                 float64 `json:"ela_score"`
	IsDeepfake               bool    `json:"is_deepfake"`
	ConfidenceLabel          string  `json:"confidence_label"`
	ModelVersion             string  `json:"model_version,omitempty"`
}

// Region is a rectangle the service flagged as likely manipulated.
type Region struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	Type       string  `json:"type"`
}

// Metadata is the EXIF and steganography record for an image.
type Metadata struct {
	ImageID               string   `json:"image_id"`
	HasEXIF               bool     `json:"has_exif"`
	CameraMake            *string  `json:"camera_make"`
	CameraModel           *string  `json:"camera_model"`
	Software              *string  `json:"software"`
	DatetimeOriginal      *string  `json:"datetime_original"`
	GPSLatitude           *float64 `json:"gps_latitude"`
	GPSLongitude          *float64 `json:"gps_longitude"`
	ImageWidth            *int     `json:"image_width"`
	ImageHeight           *int     `json:"image_height"`
	ColorSpace            *string  `json:"color_space"`
	CompressionQuality    *int     `json:"compression_quality"`
	SteganographyDetected bool     `json:"steganography_detected"`
	LSBAnomalyScore       float64  `json:"lsb_anomaly_score"`
	MetadataStripped      bool     `json:"metadata_stripped"`
	ConsistencyScore      float64  `json:"consistency_score"`
	SuspiciousFlags       []string `json:"suspicious_flags"`
}

// Analysis is the result bundle of an analyze call. ELAMap is the per-pixel
// error-level map, row-major.
type Analysis struct {
	ImageID             string      `json:"image_id"`
	DeepfakeScore       Score       `json:"deepfake_score"`
	ELAMap              [][]float64 `json:"ela_map"`
	Metadata            Metadata    `json:"metadata"`
	ManipulationRegions []Region    `json:"manipulation_regions"`
	AnalyzedAt          string      `json:"analyzed_at"`
}

// Node is an image version in a provenance graph.
type Node struct {
	ID               string  `json:"id"`
	ImageID          string  `json:"image_id"`
	Filename         string  `json:"filename"`
	Timestamp        string  `json:"timestamp"`
	Platform         string  `json:"platform"`
	DeepfakeScore    float64 `json:"deepfake_score"`
	IsRoot           bool    `json:"is_root"`
	ManipulationType *string `json:"manipulation_type"`
	PHash            string  `json:"phash"`
	ThumbnailURL     string  `json:"thumbnail_url"`
}

// Edge is a directed derivative relationship from Source to Target.
type Edge struct {
	Source          string  `json:"source"`
	Target          string  `json:"target"`
	Relationship    string  `json:"relationship"`
	SimilarityScore float64 `json:"similarity_score"`
	TimeDeltaHours  float64 `json:"time_delta_hours"`
}

// Graph is the derivative-lineage graph rooted at RootNodeID.
type Graph struct {
	ImageID        string  `json:"image_id"`
	RootNodeID     string  `json:"root_node_id"`
	Nodes          []Node  `json:"nodes"`
	Edges          []Edge  `json:"edges"`
	TotalVersions  int     `json:"total_versions"`
	SpreadDepth    int     `json:"spread_depth"`
	IntegrityScore float64 `json:"integrity_score"`
	ChainBroken    bool    `json:"chain_broken"`
}

// SpreadEvent is one account's share of an image on a platform.
type SpreadEvent struct {
	Platform      string  `json:"platform"`
	AccountID     string  `json:"account_id"`
	AccountName   string  `json:"account_name"`
	Timestamp     string  `json:"timestamp"`
	Shares        int     `json:"shares"`
	Likes         int     `json:"likes"`
	Reach         int     `json:"reach"`
	DeepfakeScore float64 `json:"deepfake_score"`
	IsBot         bool    `json:"is_bot"`
}

// Spread is the simulated social propagation of an image.
type Spread struct {
	ImageID          string        `json:"image_id"`
	Platforms        []string      `json:"platforms"`
	TotalReach       int           `json:"total_reach"`
	ViralCoefficient float64       `json:"viral_coefficient"`
	Timeline         []SpreadEvent `json:"spread_timeline"`
	FirstSeen        string        `json:"first_seen"`
	PeakSpreadTime   string        `json:"peak_spread_time"`
}

// CustodyStep is one entry in a report's chain of custody.
type CustodyStep struct {
	Step      int     `json:"step"`
	Action    string  `json:"action"`
	Timestamp *string `json:"timestamp"`
	Agent     string  `json:"agent"`
}

// Report is the compiled forensics report. Verdict is the server's four-way
// label and is consumed verbatim.
type Report struct {
	ReportID                 string        `json:"report_id"`
	ImageID                  string        `json:"image_id"`
	GeneratedAt              string        `json:"generated_at"`
	DeepfakeAnalysis         Score         `json:"deepfake_analysis"`
	MetadataAnalysis         Metadata      `json:"metadata_analysis"`
	ProvenanceGraph          Graph         `json:"provenance_graph"`
	SocialSpread             Spread        `json:"social_spread"`
	ManipulationRegions      []Region      `json:"manipulation_regions"`
	OverallAuthenticityScore float64       `json:"overall_authenticity_score"`
	Verdict                  string        `json:"verdict"`
	EvidenceSummary          []string      `json:"evidence_summary"`
	ChainOfCustody           []CustodyStep `json:"chain_of_custody"`
}

// RecentAnalysis is an entry in the service's dashboard statistics.
type RecentAnalysis struct {
	ImageID    string `json:"image_id"`
	Filename   string `json:"filename"`
	UploadTime string `json:"upload_time"`
	Verdict    string `json:"verdict"`
}

// DashboardStats aggregates every analysis the service has seen.
type DashboardStats struct {
	TotalAnalyses         int              `json:"total_analyses"`
	DeepfakesDetected     int              `json:"deepfakes_detected"`
	AuthenticImages       int              `json:"authentic_images"`
	SuspiciousImages      int              `json:"suspicious_images"`
	TotalNodesInGraphs    int              `json:"total_nodes_in_graphs"`
	AverageIntegrityScore float64          `json:"average_integrity_score"`
	PlatformsTracked      int              `json:"platforms_tracked"`
	RecentAnalyses        []RecentAnalysis `json:"recent_analyses"`
}

// ParseTime parses the service's ISO-8601 timestamps, which omit a zone.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: time.RFC3339, Value: s, Message: ": unrecognized timestamp"}
}
