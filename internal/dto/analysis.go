package dto

type DatasetStatsReq struct {
	Root string `form:"root" binding:"required"`
}

type BalanceReq struct {
	Root string `json:"root" binding:"required"`
}

type VideoInfoReq struct {
	Path string `json:"path" binding:"required"`
}

type VideoInfoRes struct {
	Path       string  `json:"path"`
	FPS        float64 `json:"fps"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FrameCount int     `json:"frame_count"`
	Duration   float64 `json:"duration"`
}

// SimilarityReq compares two fingerprints produced by the same hashing method.
type SimilarityReq struct {
	A string `json:"a" binding:"required"`
	B string `json:"b" binding:"required"`
}

type SimilarityRes struct {
	Similarity float64 `json:"similarity"`
	Comparable bool    `json:"comparable"`
}
