// Package caption implements repository.CaptionSource against YouTube's
// timedtext endpoints: list the tracks available for a video, pick the
// first language the preference list matches, then fetch that track.
package caption

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vidsum/orchestrator/internal/config"
	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/internal/domain/repository"
)

// HTTPSource fetches caption tracks over HTTP and applies the language
// preference fallback from spec §4.4.
type HTTPSource struct {
	httpClient *http.Client
	endpoint   string
	languages  []string
}

// NewHTTPSource builds an HTTPSource bound to cfg's endpoint, fetch timeout
// and language preference list.
func NewHTTPSource(cfg *config.CaptionConfig) *HTTPSource {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		languages:  cfg.LanguagePreference,
	}
}

type trackList struct {
	XMLName xml.Name `xml:"transcript_list"`
	Tracks  []track  `xml:"track"`
}

type track struct {
	LangCode string `xml:"lang_code,attr"`
}

type transcriptBody struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []transcriptRow `xml:"text"`
}

type transcriptRow struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Text     string  `xml:",chardata"`
}

// Fetch implements repository.CaptionSource.
func (s *HTTPSource) Fetch(ctx context.Context, vid string) ([]entity.TimedText, string, error) {
	tracks, err := s.listTracks(ctx, vid)
	if err != nil {
		return nil, "", err
	}
	if len(tracks) == 0 {
		return nil, "", repository.ErrTranscriptsDisabled
	}

	lang, ok := pickLanguage(tracks, s.languages)
	if !ok {
		return nil, "", repository.ErrNoTranscript
	}

	texts, err := s.fetchTrack(ctx, vid, lang)
	if err != nil {
		return nil, "", err
	}
	if len(texts) == 0 {
		return nil, "", repository.ErrNoTranscript
	}

	out := make([]entity.TimedText, len(texts))
	for i, t := range texts {
		out[i] = entity.TimedText{Start: t.Start, Duration: t.Duration, Lang: lang, Text: t.Text}
	}
	return out, lang, nil
}

// pickLanguage walks preference in order and returns the first language
// code that a listed track actually carries (spec §4.4). No fallback to an
// unlisted language is applied, matching the upstream library's behavior.
func pickLanguage(tracks []track, preference []string) (string, bool) {
	available := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		available[t.LangCode] = true
	}
	for _, lang := range preference {
		if available[lang] {
			return lang, true
		}
	}
	return "", false
}

func (s *HTTPSource) listTracks(ctx context.Context, vid string) ([]track, error) {
	u := fmt.Sprintf("%s/api/timedtext?type=list&v=%s", s.endpoint, url.QueryEscape(vid))
	var list trackList
	status, err := s.getXML(ctx, u, &list)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || status == http.StatusForbidden {
		return nil, nil
	}
	return list.Tracks, nil
}

func (s *HTTPSource) fetchTrack(ctx context.Context, vid, lang string) ([]transcriptRow, error) {
	u := fmt.Sprintf("%s/api/timedtext?v=%s&lang=%s", s.endpoint, url.QueryEscape(vid), url.QueryEscape(lang))
	var body transcriptBody
	status, err := s.getXML(ctx, u, &body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return body.Texts, nil
}

func (s *HTTPSource) getXML(ctx context.Context, rawURL string, dest interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build caption request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("caption request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("caption request failed: status=%d", resp.StatusCode)
	}

	if err := xml.NewDecoder(resp.Body).Decode(dest); err != nil {
		return resp.StatusCode, fmt.Errorf("decode caption response: %w", err)
	}
	return resp.StatusCode, nil
}
