// Package connectivity はデータベースの到達性を監視し、
// リクエスト処理側へ現在の接続状態を提供する。
package connectivity

import "sync/atomic"

// State はプロセス全体で共有するDB接続状態を保持する。
// 書き込みはMonitorのみが行い、ゲートやヘルスチェックは読み取りのみ行う。
// ゼロ値は「未接続」を表し、接続試行が完了する前から参照できる。
type State struct {
	connected atomic.Bool
}

// NewState は未接続状態のStateを生成する。
func NewState() *State {
	return &State{}
}

// IsAvailable は最後に観測した接続状態を返す。ブロックしない。
func (s *State) IsAvailable() bool {
	return s.connected.Load()
}

// set は接続状態を更新し、値が変化した場合にtrueを返す。
func (s *State) set(connected bool) bool {
	return s.connected.Swap(connected) != connected
}
