package strategy

import (
	"context"
	"errors"

	"Spotmap-App/internal/domain/model"
)

// FilterStrategy は、フィルターモードごとに必要な取得元を読み出してピン候補を集める戦略のインターフェース
type FilterStrategy interface {
	// 対象のフィルターモード
	Mode() model.FilterMode

	// モードに必要な取得元を読み出し、取得元ごとにバッファリングした候補を返す
	// 個々の取得元の失敗はログに残して空として扱い、エラーにはしない
	// モードの主クエリが失敗した場合は ErrPrimarySourceFailed を返す
	Collect(ctx context.Context, userID string, params *model.FetchParams) (*model.CandidateSet, error)

	// マージ時に再検証する範囲条件（境界ボックスまたは都市名）
	AreaFilter(params *model.FetchParams) model.PinFilter
}

// ErrPrimarySourceFailed モードの主クエリ（sharedの共有一覧、followingのフォロー一覧）の取得失敗
// 呼び出し側は空の結果として扱うが、キャッシュには保存しない
var ErrPrimarySourceFailed = errors.New("主クエリの取得失敗")
