package classify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrUnrecognizedURL はチャンネル・動画いずれのパターンにも一致しないURLのエラー
	ErrUnrecognizedURL = errors.New("url does not match any known channel or video form")

	// ErrMalformedURL は既知のプレフィックスを持つがIDを取り出せないURLのエラー
	ErrMalformedURL = errors.New("url matches a known form but has no parseable id")
)

// RefKind は参照の種別を表します
type RefKind string

const (
	KindChannel RefKind = "channel"
	KindVideo   RefKind = "video"
)

// Reference は分類済みのYouTube参照を表します
type Reference struct {
	Kind RefKind
	// ID はチャンネルID・ハンドル・動画IDのいずれか
	ID string
	// Raw は分類時に与えられた元のURL文字列
	Raw string

	// canonical は分類時に確定した正規URL。
	// ハンドル・カスタムURL・レガシーユーザー名は別の名前空間のため、
	// 元のURL形式を保ったまま正規化する。
	canonical string
}

// CanonicalURL は参照の正規URLを返します。
// Classifyを経た参照は分類時のURL形式（/channel/・/@・/c/・/user/）を保ちます。
func (r Reference) CanonicalURL() string {
	if r.canonical != "" {
		return r.canonical
	}
	// フィールドから直接組み立てられた参照のフォールバック
	switch r.Kind {
	case KindChannel:
		if strings.HasPrefix(r.ID, "UC") {
			return "https://www.youtube.com/channel/" + r.ID
		}
		return "https://www.youtube.com/@" + r.ID
	case KindVideo:
		return "https://www.youtube.com/watch?v=" + r.ID
	}
	return r.Raw
}

// Classify は単一のURL文字列を型付き参照に分類します。
// 純粋関数であり、I/Oや副作用を持ちません。
func Classify(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Reference{}, fmt.Errorf("%w: empty url", ErrUnrecognizedURL)
	}

	// スキーム省略を許容する（元の入力は youtube.com/... 形式が多い）
	normalized := trimmed
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}

	parsed, err := url.Parse(normalized)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %s", ErrUnrecognizedURL, trimmed)
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	switch host {
	case "youtu.be":
		return classifyShortLink(parsed, trimmed)
	case "youtube.com", "music.youtube.com":
		return classifyMainHost(parsed, trimmed)
	default:
		return Reference{}, fmt.Errorf("%w: %s", ErrUnrecognizedURL, trimmed)
	}
}

// classifyShortLink は youtu.be/VIDEO_ID 形式を分類します
func classifyShortLink(parsed *url.URL, raw string) (Reference, error) {
	id := firstPathSegment(parsed.Path)
	if id == "" {
		return Reference{}, fmt.Errorf("%w: %s", ErrMalformedURL, raw)
	}
	return Reference{Kind: KindVideo, ID: id, Raw: raw, canonical: watchURL(id)}, nil
}

// classifyMainHost は youtube.com 配下のパスを分類します
func classifyMainHost(parsed *url.URL, raw string) (Reference, error) {
	segments := splitPath(parsed.Path)
	if len(segments) == 0 {
		return Reference{}, fmt.Errorf("%w: %s", ErrUnrecognizedURL, raw)
	}

	head := segments[0]

	// 動画形式を先に判定する（元実装と同じ優先順位）
	switch head {
	case "watch":
		id := parsed.Query().Get("v")
		if id == "" {
			return Reference{}, fmt.Errorf("%w: %s", ErrMalformedURL, raw)
		}
		return Reference{Kind: KindVideo, ID: id, Raw: raw, canonical: watchURL(id)}, nil
	case "shorts", "embed", "v":
		if len(segments) < 2 || segments[1] == "" {
			return Reference{}, fmt.Errorf("%w: %s", ErrMalformedURL, raw)
		}
		return Reference{Kind: KindVideo, ID: segments[1], Raw: raw, canonical: watchURL(segments[1])}, nil
	}

	// チャンネル形式。/channel/・/c/・/user/ は指すものが異なるため形式を保存する
	switch head {
	case "channel", "c", "user":
		if len(segments) < 2 || segments[1] == "" {
			return Reference{}, fmt.Errorf("%w: %s", ErrMalformedURL, raw)
		}
		return Reference{
			Kind:      KindChannel,
			ID:        segments[1],
			Raw:       raw,
			canonical: "https://www.youtube.com/" + head + "/" + segments[1],
		}, nil
	}

	if handle, ok := strings.CutPrefix(head, "@"); ok {
		if handle == "" {
			return Reference{}, fmt.Errorf("%w: %s", ErrMalformedURL, raw)
		}
		return Reference{
			Kind:      KindChannel,
			ID:        handle,
			Raw:       raw,
			canonical: "https://www.youtube.com/@" + handle,
		}, nil
	}

	return Reference{}, fmt.Errorf("%w: %s", ErrUnrecognizedURL, raw)
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func firstPathSegment(path string) string {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[0]
}
