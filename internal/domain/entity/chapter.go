// Package entity defines the domain entities of the summary orchestrator.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Slicer identifies who produced a Chapter's boundaries.
type Slicer string

const (
	SlicerYouTube Slicer = "YOUTUBE"
	SlicerLLM     Slicer = "LLM"
)

// Style identifies how a Chapter's summary is represented.
type Style string

const (
	StyleText     Style = "TEXT"
	StyleMarkdown Style = "MARKDOWN"
)

// Chapter is one logical section of a video's summary.
//
// Within one video, chapters are ordered by Start ascending and Cid is
// unique. Style=TEXT implies a compact prose Summary produced in a single
// pass; Style=MARKDOWN implies an iteratively refined bullet list.
type Chapter struct {
	Cid       string    `json:"cid" gorm:"column:cid;type:uuid;primaryKey"`
	Vid       string    `json:"vid" gorm:"column:vid;type:varchar(64);index;not null"`
	Trigger   string    `json:"trigger" gorm:"column:trigger;type:varchar(128);index"`
	Slicer    Slicer    `json:"slicer" gorm:"column:slicer;type:varchar(16);not null"`
	Style     Style     `json:"style" gorm:"column:style;type:varchar(16);not null"`
	Start     int       `json:"start" gorm:"column:start;not null"`
	Lang      string    `json:"lang" gorm:"column:lang;type:varchar(16)"`
	Title     string    `json:"chapter" gorm:"column:chapter;type:varchar(255)"`
	Summary   string    `json:"summary" gorm:"column:summary;type:text"`
	Refined   int       `json:"refined" gorm:"column:refined;default:0"`
	CreatedAt time.Time `json:"create_ts" gorm:"column:create_ts;autoCreateTime"`
	UpdatedAt time.Time `json:"update_ts" gorm:"column:update_ts;autoUpdateTime"`
}

// TableName pins the GORM table name to the single logical chapter table.
func (Chapter) TableName() string {
	return "chapter"
}

// NewChapter constructs a Chapter with a freshly minted cid.
func NewChapter(vid, trigger string, slicer Slicer, style Style, start int, lang, title, summary string) *Chapter {
	now := time.Now()
	return &Chapter{
		Cid:       uuid.NewString(),
		Vid:       vid,
		Trigger:   trigger,
		Slicer:    slicer,
		Style:     style,
		Start:     start,
		Lang:      lang,
		Title:     title,
		Summary:   summary,
		Refined:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyRefinement records one refine pass's resulting summary.
func (c *Chapter) ApplyRefinement(summary string) {
	c.Summary = summary
	c.Style = StyleMarkdown
	c.Refined++
	c.UpdatedAt = time.Now()
}

// TimedText is a single caption segment.
type TimedText struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Lang     string  `json:"lang"`
	Text     string  `json:"text"`
}

// ChapterHint is an optional user-supplied outline entry.
type ChapterHint struct {
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"` // "H:MM:SS" or "MM:SS"
}

// SummaryState is the lifecycle state published to subscribers.
type SummaryState string

const (
	SummaryStateNothing SummaryState = "nothing"
	SummaryStateDoing   SummaryState = "doing"
	SummaryStateDone    SummaryState = "done"
)

// SummaryResponse is the synchronous or published payload shape from spec §6.
type SummaryResponse struct {
	State    SummaryState `json:"state"`
	Chapters []*Chapter   `json:"chapters"`
}

// Feedback holds good/bad counters for one video.
type Feedback struct {
	Vid       string    `json:"vid" gorm:"column:vid;primaryKey;type:varchar(64)"`
	Good      int       `json:"good" gorm:"column:good;default:0"`
	Bad       int       `json:"bad" gorm:"column:bad;default:0"`
	CreatedAt time.Time `json:"create_ts" gorm:"column:create_ts;autoCreateTime"`
	UpdatedAt time.Time `json:"update_ts" gorm:"column:update_ts;autoUpdateTime"`
}

// TableName pins the GORM table name for Feedback.
func (Feedback) TableName() string {
	return "feedback"
}
