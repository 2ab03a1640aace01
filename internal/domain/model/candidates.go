package model

// PinSource ピン候補の取得元
type PinSource int

const (
	SourceLocationShare PinSource = iota
	SourceAuthoredLocation
	SourceSavedLocation
	SourceSavedPlace
)

// SourcePriority マージ時の優先順（先に並ぶ取得元が同一地点の競合で勝つ）
var SourcePriority = []PinSource{
	SourceLocationShare,
	SourceAuthoredLocation,
	SourceSavedLocation,
	SourceSavedPlace,
}

var sourceNames = map[PinSource]string{
	SourceLocationShare:    "user_location_shares",
	SourceAuthoredLocation: "locations",
	SourceSavedLocation:    "user_saved_locations",
	SourceSavedPlace:       "saved_places",
}

func (s PinSource) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return "unknown"
}

// PinCandidate マージ前のピン候補
type PinCandidate struct {
	Pin    MapPin
	Source PinSource
}

// CandidateSet 取得元ごとにバッファリングされた候補
// I/Oの完了順に関係なく SourcePriority の順でマージするために使う
type CandidateSet struct {
	Mode    FilterMode
	Sources map[PinSource][]PinCandidate

	// popularモードの集計用
	SaveCounts map[string]int // location_id -> user_saved_locations 件数
	PostCounts map[string]int // location_id -> posts 件数
}

// NewCandidateSet 空の候補セットを作成
func NewCandidateSet(mode FilterMode) *CandidateSet {
	return &CandidateSet{
		Mode:       mode,
		Sources:    make(map[PinSource][]PinCandidate),
		SaveCounts: make(map[string]int),
		PostCounts: make(map[string]int),
	}
}

// Add 候補を追加
func (s *CandidateSet) Add(source PinSource, pin MapPin) {
	s.Sources[source] = append(s.Sources[source], PinCandidate{Pin: pin, Source: source})
}

// Len 候補の総数
func (s *CandidateSet) Len() int {
	n := 0
	for _, c := range s.Sources {
		n += len(c)
	}
	return n
}

// Ordered SourcePriority 順に並べた候補
func (s *CandidateSet) Ordered() []PinCandidate {
	ordered := make([]PinCandidate, 0, s.Len())
	for _, src := range SourcePriority {
		ordered = append(ordered, s.Sources[src]...)
	}
	return ordered
}

// PinFilter マージ時にピンを採用するかの判定
type PinFilter func(pin *MapPin) bool

// AcceptAll 範囲条件なし
func AcceptAll(*MapPin) bool { return true }
