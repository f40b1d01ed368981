package functions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m2tx/benchagent/internal/log"
	"github.com/m2tx/benchagent/internal/tools"
)

const youtubeVideosURL = "https://www.googleapis.com/youtube/v3/videos"

var (
	videoIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	isoDurationExpr = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
)

// VideoAnalyzer describes what happens on screen in a video.
type VideoAnalyzer interface {
	AnalyzeVideo(ctx context.Context, videoURL, question string) (string, error)
}

// VideoDetails is the public metadata of a YouTube video.
type VideoDetails struct {
	Title       string
	Channel     string
	Description string
	Duration    time.Duration
}

// YouTube reads video metadata from the YouTube Data API.
type YouTube struct {
	client   *http.Client
	apiKey   string
	endpoint string
}

func NewYouTube(client *http.Client, apiKey string) *YouTube {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &YouTube{client: client, apiKey: apiKey, endpoint: youtubeVideosURL}
}

// videoID accepts watch, short, embed and youtu.be links as well as a bare id.
func videoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid video url: %w", err)
	}

	var id string
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			id = v
		} else if parts := strings.Split(strings.Trim(u.Path, "/"), "/"); len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
			id = parts[1]
		}
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("no YouTube video id in %q", raw)
	}
	return id, nil
}

func parseISODuration(s string) (time.Duration, error) {
	m := isoDurationExpr.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d += time.Duration(n) * unit
	}
	return d, nil
}

type youtubeResponse struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Description  string `json:"description"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (y *YouTube) Details(ctx context.Context, id string) (*VideoDetails, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("id", id)
	params.Set("key", y.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube: unexpected status %d", resp.StatusCode)
	}

	var body youtubeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("youtube: decode: %w", err)
	}
	if len(body.Items) == 0 {
		return nil, fmt.Errorf("youtube: video %s not found", id)
	}

	item := body.Items[0]
	duration, err := parseISODuration(item.ContentDetails.Duration)
	if err != nil {
		log.Warnf("youtube: video %s: %v", id, err)
	}
	return &VideoDetails{
		Title:       item.Snippet.Title,
		Channel:     item.Snippet.ChannelTitle,
		Description: item.Snippet.Description,
		Duration:    duration,
	}, nil
}

// CreateAnalyzeYoutubeVideoFunctionDeclaration needs at least one of yt and visual.
func CreateAnalyzeYoutubeVideoFunctionDeclaration(yt *YouTube, visual VideoAnalyzer) *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "analyze_youtube_video",
		Description: "Returns the title, description and duration of a YouTube video and, when available, a description of what is shown and said in it.",
		Parameters: []tools.Parameter{
			{Name: "video_url", Type: tools.TypeString, Description: "The URL of the YouTube video to analyze.", Required: true},
			{Name: "question", Type: tools.TypeString, Description: "What to look for in the video, e.g. 'how many bird species are on camera at once'."},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			id, err := videoID(tools.String(args, "video_url"))
			if err != nil {
				return nil, err
			}
			canonical := "https://www.youtube.com/watch?v=" + id

			var sections []string
			var errs []error
			if yt != nil {
				details, err := yt.Details(ctx, id)
				if err != nil {
					errs = append(errs, err)
				} else {
					sections = append(sections, fmt.Sprintf("Title: %s\nChannel: %s\nDescription: %s\nDuration: %.0f seconds",
						details.Title, details.Channel, details.Description, details.Duration.Seconds()))
				}
			}
			if visual != nil {
				analysis, err := visual.AnalyzeVideo(ctx, canonical, tools.String(args, "question"))
				if err != nil {
					errs = append(errs, err)
				} else {
					sections = append(sections, "Visual Analysis: "+analysis)
				}
			}

			if len(sections) == 0 {
				if len(errs) == 0 {
					return nil, errors.New("no video source is configured")
				}
				return nil, errors.Join(errs...)
			}
			for _, err := range errs {
				log.Warnf("analyze_youtube_video: %s: %v", id, err)
			}
			return strings.Join(sections, "\n"), nil
		},
	}
}
