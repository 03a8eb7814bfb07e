package classify

import "fmt"

// RunMode はバッチ全体の処理モードを表します。
// 最初に分類できた参照がモードを確定し、以後の不一致URLは拒否されます。
type RunMode string

const (
	ModeChannel RunMode = "channel"
	ModeVideo   RunMode = "video"
)

// MixedModeError は確定済みモードと異なる種別のURLを表します
type MixedModeError struct {
	URL      string
	Expected RunMode
	Actual   RunMode
}

func (e *MixedModeError) Error() string {
	return fmt.Sprintf("url %s classified as %s but batch mode is %s", e.URL, e.Actual, e.Expected)
}

// URLWarning はバッチ処理から除外されたURLとその理由を表します
type URLWarning struct {
	URL string
	Err error
}

// Batch は分類済みURLバッチを表します
type Batch struct {
	Mode       RunMode
	References []Reference
	// Warnings は除外されたURLの一覧（分類エラーまたはモード不一致）
	Warnings []URLWarning
}

// ClassifyBatch はURL列を分類し、処理モードを確定します。
// モードと一致しないURLは黙ってスキップせず、警告として報告したうえで除外します。
func ClassifyBatch(urls []string) (*Batch, error) {
	batch := &Batch{}

	for _, raw := range urls {
		ref, err := Classify(raw)
		if err != nil {
			batch.Warnings = append(batch.Warnings, URLWarning{URL: raw, Err: err})
			continue
		}

		mode := ModeChannel
		if ref.Kind == KindVideo {
			mode = ModeVideo
		}

		// 最初に分類できた参照がモードを確定する
		if batch.Mode == "" {
			batch.Mode = mode
		} else if mode != batch.Mode {
			batch.Warnings = append(batch.Warnings, URLWarning{
				URL: raw,
				Err: &MixedModeError{URL: raw, Expected: batch.Mode, Actual: mode},
			})
			continue
		}

		batch.References = append(batch.References, ref)
	}

	if len(batch.References) == 0 {
		return batch, fmt.Errorf("no classifiable urls in batch (%d rejected)", len(batch.Warnings))
	}

	return batch, nil
}
