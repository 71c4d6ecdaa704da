package connectivity

import "time"

// nextDelay は次の到達性チェックまでの待機時間を返す。
// 接続中は通常間隔、切断中は連続失敗回数に応じて2倍ずつ延ばし、maxで頭打ちにする。
// maxがintervalより短い場合はintervalを上限とし、切断中に接続中より頻繁にチェックしないようにする。
func nextDelay(interval, max time.Duration, consecutiveFailures int) time.Duration {
	if max < interval {
		max = interval
	}
	if consecutiveFailures <= 0 {
		return interval
	}
	delay := interval
	for i := 1; i < consecutiveFailures; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
