package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/ingest"
)

const (
	// DefaultYtdlpPath は実行ファイル名のデフォルト
	DefaultYtdlpPath = "yt-dlp"
	// DefaultRequestsPerMinute は毎分のyt-dlp起動回数の上限
	DefaultRequestsPerMinute = 30
	// DefaultCommandTimeout は1回の起動あたりのタイムアウト
	DefaultCommandTimeout = 5 * time.Minute
)

// DefaultLanguages は字幕取得の優先言語です
var DefaultLanguages = []string{"ja", "en"}

// Client は yt-dlp のサブプロセス起動でYouTubeのメタデータと字幕を取得します。
// 起動はレートリミッタで平滑化されます。
type Client struct {
	ytdlpPath string
	languages []string
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *slog.Logger
}

type clientOptions struct {
	ytdlpPath         string
	languages         []string
	requestsPerMinute int
	timeout           time.Duration
	logger            *slog.Logger
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithYtdlpPath は実行ファイルのパスを上書きします
func WithYtdlpPath(path string) ClientOption {
	return func(o *clientOptions) {
		if path != "" {
			o.ytdlpPath = path
		}
	}
}

// WithLanguages は字幕の優先言語を上書きします
func WithLanguages(languages []string) ClientOption {
	return func(o *clientOptions) {
		if len(languages) > 0 {
			o.languages = languages
		}
	}
}

// WithRequestsPerMinute は毎分の起動回数上限を上書きします
func WithRequestsPerMinute(n int) ClientOption {
	return func(o *clientOptions) {
		if n > 0 {
			o.requestsPerMinute = n
		}
	}
}

// WithCommandTimeout は1起動あたりのタイムアウトを上書きします
func WithCommandTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithClientLogger はロガーを差し替えます
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// NewClient は新しい Client を作成します
func NewClient(opts ...ClientOption) *Client {
	options := clientOptions{
		ytdlpPath:         DefaultYtdlpPath,
		languages:         DefaultLanguages,
		requestsPerMinute: DefaultRequestsPerMinute,
		timeout:           DefaultCommandTimeout,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	interval := time.Minute / time.Duration(options.requestsPerMinute)
	return &Client{
		ytdlpPath: options.ytdlpPath,
		languages: options.languages,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		timeout:   options.timeout,
		logger:    options.logger,
	}
}

// videoJSON は yt-dlp の -J 出力のうち利用するフィールドです
type videoJSON struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ChannelID  string `json:"channel_id"`
	Channel    string `json:"channel"`
	ChannelURL string `json:"channel_url"`
	UploadDate string `json:"upload_date"`
	WebpageURL string `json:"webpage_url"`
	URL        string `json:"url"`
}

type playlistJSON struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	ChannelID  string      `json:"channel_id"`
	Channel    string      `json:"channel"`
	Uploader   string      `json:"uploader"`
	ChannelURL string      `json:"channel_url"`
	WebpageURL string      `json:"webpage_url"`
	Entries    []videoJSON `json:"entries"`
}

// LookupChannel はチャンネルURLのメタデータを取得します。
// ハンドル・カスタムURL・レガシーユーザー名の解決は yt-dlp に任せるため、
// URLはそのまま渡し、正規のチャンネルIDは出力の channel_id から得ます。
func (c *Client) LookupChannel(ctx context.Context, channelURL string) (*ingest.ChannelMeta, error) {
	// 動画一覧のダウンロードを避け、プレイリスト情報だけ取得する
	out, err := c.run(ctx,
		"-J", "--flat-playlist", "--playlist-items", "0",
		channelVideosURL(channelURL),
	)
	if err != nil {
		return nil, err
	}

	var payload playlistJSON
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse channel metadata: %w", err)
	}

	name := payload.Channel
	if name == "" {
		name = payload.Uploader
	}
	if name == "" {
		name = strings.TrimSuffix(payload.Title, " - Videos")
	}
	id := payload.ChannelID
	if id == "" {
		return nil, fmt.Errorf("channel %s has no channel_id metadata", channelURL)
	}
	url := payload.ChannelURL
	if url == "" {
		url = strings.TrimSuffix(channelURL, "/")
	}

	return &ingest.ChannelMeta{ID: id, Name: name, URL: url}, nil
}

// ListChannelVideos はフィルタを通過するチャンネル配下の動画を列挙します
func (c *Client) ListChannelVideos(ctx context.Context, channelURL string, filter ingest.DateFilter) ([]*ingest.VideoMeta, error) {
	args := []string{"-J", "--flat-playlist"}
	args = append(args, dateFilterArgs(filter, time.Now())...)
	args = append(args, channelVideosURL(channelURL))

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var payload playlistJSON
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse channel videos: %w", err)
	}

	now := time.Now()
	var metas []*ingest.VideoMeta
	for _, entry := range payload.Entries {
		meta := entryToMeta(entry, payload.ChannelID, payload.Channel)
		// flat-playlist出力に公開日が載らない場合があるため、手元でも絞り込む
		if !filter.Allows(meta.PublishedAt, now) {
			continue
		}
		metas = append(metas, meta)
	}

	c.logger.Info("チャンネルの動画を列挙しました",
		slog.String("channel_url", channelURL),
		slog.Int("videos", len(metas)),
	)
	return metas, nil
}

// LookupVideo は動画のメタデータを所属チャンネル込みで取得します
func (c *Client) LookupVideo(ctx context.Context, videoID string) (*ingest.VideoMeta, error) {
	out, err := c.run(ctx, "-J", "--skip-download", watchURL(videoID))
	if err != nil {
		return nil, err
	}

	var payload videoJSON
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse video metadata: %w", err)
	}
	meta := entryToMeta(payload, payload.ChannelID, payload.Channel)
	if meta.ChannelID == "" {
		return nil, fmt.Errorf("video %s has no channel metadata", videoID)
	}
	return meta, nil
}

// FetchTranscript はタイムコード付き字幕を取得します。
// 手動字幕を優先し、なければ自動生成字幕を使います。
func (c *Client) FetchTranscript(ctx context.Context, videoID string) (*catalog.Transcript, error) {
	dir, err := os.MkdirTemp("", "tubeseek-subs-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{
		"--skip-download",
		"--write-subs", "--write-auto-subs",
		"--sub-langs", strings.Join(c.languages, ","),
		"--sub-format", "vtt",
		"-o", filepath.Join(dir, "%(id)s"),
		watchURL(videoID),
	}
	if _, err := c.run(ctx, args...); err != nil {
		return nil, err
	}

	path, language, err := findSubtitleFile(dir, videoID, c.languages)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer file.Close()

	segments, err := ParseVTT(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subtitles: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: empty subtitle file for video %s", ingest.ErrTranscriptUnavailable, videoID)
	}

	return &catalog.Transcript{
		VideoID:   videoID,
		Language:  language,
		Segments:  segments,
		FetchedAt: time.Now(),
	}, nil
}

// run はレート制限を待ってから yt-dlp を起動し、標準出力を返します
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.ytdlpPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("yt-dlpを起動します", slog.String("args", strings.Join(args, " ")))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classifyCommandError(err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// classifyCommandError は yt-dlp の失敗を取り込みの失敗分類へ写像します
func classifyCommandError(err error, stderr string) error {
	lowered := strings.ToLower(stderr)
	switch {
	case strings.Contains(lowered, "429") || strings.Contains(lowered, "too many requests"):
		return fmt.Errorf("%w: %s", ingest.ErrRateLimited, firstLine(stderr))
	case strings.Contains(lowered, "no subtitles") || strings.Contains(lowered, "subtitles not available"):
		return fmt.Errorf("%w: %s", ingest.ErrTranscriptUnavailable, firstLine(stderr))
	case strings.Contains(lowered, "unable to download") ||
		strings.Contains(lowered, "connection") ||
		strings.Contains(lowered, "timed out") ||
		strings.Contains(lowered, "temporary failure"):
		return fmt.Errorf("%w: %s", ingest.ErrNetwork, firstLine(stderr))
	}
	if stderr != "" {
		return fmt.Errorf("yt-dlp failed: %s", firstLine(stderr))
	}
	return fmt.Errorf("yt-dlp failed: %w", err)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

// findSubtitleFile は優先言語順にダウンロード済みの字幕ファイルを探します
func findSubtitleFile(dir, videoID string, languages []string) (string, string, error) {
	for _, lang := range languages {
		path := filepath.Join(dir, fmt.Sprintf("%s.%s.vtt", videoID, lang))
		if _, err := os.Stat(path); err == nil {
			return path, lang, nil
		}
	}

	// 言語サフィックスが想定と異なる場合に備えて残りのvttも探す
	matches, err := filepath.Glob(filepath.Join(dir, videoID+".*.vtt"))
	if err == nil && len(matches) > 0 {
		base := filepath.Base(matches[0])
		lang := strings.TrimSuffix(strings.TrimPrefix(base, videoID+"."), ".vtt")
		return matches[0], lang, nil
	}

	return "", "", fmt.Errorf("%w: no subtitles downloaded for video %s", ingest.ErrTranscriptUnavailable, videoID)
}

func entryToMeta(entry videoJSON, channelID, channelName string) *ingest.VideoMeta {
	url := entry.WebpageURL
	if url == "" {
		url = entry.URL
	}
	if url == "" {
		url = watchURL(entry.ID)
	}

	meta := &ingest.VideoMeta{
		ID:          entry.ID,
		ChannelID:   channelID,
		ChannelName: channelName,
		ChannelURL:  entry.ChannelURL,
		Title:       entry.Title,
		URL:         url,
	}
	if entry.ChannelID != "" {
		meta.ChannelID = entry.ChannelID
	}
	if meta.ChannelURL == "" && meta.ChannelID != "" {
		meta.ChannelURL = "https://www.youtube.com/channel/" + meta.ChannelID
	}
	if published, err := parseUploadDate(entry.UploadDate); err == nil {
		meta.PublishedAt = &published
	}
	return meta
}

// parseUploadDate は yt-dlp の upload_date（YYYYMMDD）を解釈します
func parseUploadDate(value string) (time.Time, error) {
	return time.Parse("20060102", value)
}

// channelVideosURL はチャンネルURLの動画一覧タブへのURLを返します。
// /channel/UC... に限らず /@handle・/c/name・/user/name をそのまま受け付けます。
func channelVideosURL(channelURL string) string {
	return strings.TrimSuffix(channelURL, "/") + "/videos"
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// dateFilterArgs は公開日フィルタを yt-dlp の引数に変換します
func dateFilterArgs(filter ingest.DateFilter, now time.Time) []string {
	cutoff, ok := filter.Cutoff(now)
	if !ok {
		return nil
	}
	// 新しい順の一覧で下限より古い動画に達したら打ち切る
	return []string{"--dateafter", cutoff.Format("20060102"), "--break-on-reject", "--lazy-playlist"}
}

// インターフェース実装の確認
var _ ingest.Fetcher = (*Client)(nil)
