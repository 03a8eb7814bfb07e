package ingest

import "time"

// FilterMode は取り込み対象動画の公開日による絞り込み方式を表します
type FilterMode string

const (
	// FilterAll は全動画を対象にします
	FilterAll FilterMode = "all"
	// FilterRecent は直近Nヶ月に公開された動画のみを対象にします
	FilterRecent FilterMode = "recent"
	// FilterSince は指定日以降に公開された動画のみを対象にします
	FilterSince FilterMode = "since"
)

// DefaultRecentMonths はFilterRecentの既定の遡り月数です
const DefaultRecentMonths = 6

// DateFilter は公開日フィルタを表します
type DateFilter struct {
	Mode         FilterMode
	RecentMonths int
	Since        time.Time
}

// FilterAllVideos は絞り込みなしのフィルタを返します
func FilterAllVideos() DateFilter {
	return DateFilter{Mode: FilterAll}
}

// FilterRecentMonths は直近months月のフィルタを返します
func FilterRecentMonths(months int) DateFilter {
	if months <= 0 {
		months = DefaultRecentMonths
	}
	return DateFilter{Mode: FilterRecent, RecentMonths: months}
}

// FilterSinceDate は指定日以降のフィルタを返します
func FilterSinceDate(since time.Time) DateFilter {
	return DateFilter{Mode: FilterSince, Since: since}
}

// Cutoff は対象範囲の下限日時を返します。絞り込みなしの場合は false を返します。
func (f DateFilter) Cutoff(now time.Time) (time.Time, bool) {
	switch f.Mode {
	case FilterRecent:
		months := f.RecentMonths
		if months <= 0 {
			months = DefaultRecentMonths
		}
		return now.AddDate(0, -months, 0), true
	case FilterSince:
		return f.Since, true
	}
	return time.Time{}, false
}

// Allows は動画がフィルタを通過するかを判定します。
// 公開日が不明な動画は除外せず通過させます。
func (f DateFilter) Allows(publishedAt *time.Time, now time.Time) bool {
	cutoff, ok := f.Cutoff(now)
	if !ok || publishedAt == nil {
		return true
	}
	return !publishedAt.Before(cutoff)
}
