package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"trackclip/internal/core"
)

const (
	innertubePlayerURL = "https://www.youtube.com/youtubei/v1/player"
	ytAndroidVersion   = "20.10.38"
	ytAndroidSDK       = 30
	ytAndroidUA        = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
	maxPlayerRespSize  = 4 << 20
)

// streamQualities are the accepted muxed stream qualities.
var streamQualities = []string{"1080p", "720p", "480p"}

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

// Format is a muxed audio and video stream offered by the player API.
type Format struct {
	URL          string
	MimeType     string
	QualityLabel string
	Height       int
}

// InnerTube queries the player API with the ANDROID client.
type InnerTube struct {
	client   *http.Client
	endpoint string
}

// NewInnerTube creates a player API client. An empty endpoint selects the
// public one.
func NewInnerTube(client *http.Client, endpoint string) *InnerTube {
	if endpoint == "" {
		endpoint = innertubePlayerURL
	}
	return &InnerTube{client: client, endpoint: endpoint}
}

// Player returns video details and the muxed format list of videoID.
func (it *InnerTube) Player(ctx context.Context, videoID string) (*Resolution, error) {
	payload, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{Client: innertubeClient{
			ClientName:        "ANDROID",
			ClientVersion:     ytAndroidVersion,
			AndroidSdkVersion: ytAndroidSDK,
			Hl:                "en",
			Gl:                "US",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.endpoint+"?prettyPrint=false", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", ytAndroidUA)
	req.Header.Set("X-Youtube-Client-Name", "3")
	req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)

	resp, err := it.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("player API returned status %d: %s", resp.StatusCode, snippet)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPlayerRespSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read player response: %w", err)
	}

	return parsePlayerResponse(videoID, body)
}

func parsePlayerResponse(videoID string, body []byte) (*Resolution, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("player response is not JSON")
	}

	doc := gjson.ParseBytes(body)
	if status := doc.Get("playabilityStatus.status").String(); status != "OK" {
		return nil, fmt.Errorf("video not playable: %s %s", status, doc.Get("playabilityStatus.reason").String())
	}

	details := doc.Get("videoDetails")
	if !details.Exists() {
		return nil, errors.New("player response has no video details")
	}

	var formats []Format
	doc.Get("streamingData.formats").ForEach(func(_, f gjson.Result) bool {
		if u := f.Get("url").String(); u != "" {
			formats = append(formats, Format{
				URL:          u,
				MimeType:     f.Get("mimeType").String(),
				QualityLabel: f.Get("qualityLabel").String(),
				Height:       int(f.Get("height").Int()),
			})
		}
		return true
	})

	return &Resolution{
		Info: core.VideoInfo{
			ID:       videoID,
			Title:    details.Get("title").String(),
			Channel:  details.Get("author").String(),
			Duration: time.Duration(details.Get("lengthSeconds").Int()) * time.Second,
		},
		Formats: formats,
	}, nil
}

// streamableFormats returns the mp4 formats at an accepted quality, highest first.
func streamableFormats(formats []Format) []Format {
	var out []Format
	for _, f := range formats {
		if !strings.HasPrefix(f.MimeType, "video/mp4") {
			continue
		}
		for _, q := range streamQualities {
			if strings.Contains(f.QualityLabel, q) {
				out = append(out, f)
				break
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Height > out[j].Height
	})
	return out
}
