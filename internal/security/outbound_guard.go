// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// OutboundGuard は外部APIへのHTTP呼び出しをSSRFから保護する。
// 記事検索プロキシが上流APIを呼び出す際に使用する。
type OutboundGuard struct {
	allowedSchemes []string
	allowedPorts   []int
}

// NewOutboundGuard はhttpsの443番ポートのみを許可するOutboundGuardを生成する。
func NewOutboundGuard() *OutboundGuard {
	return &OutboundGuard{
		allowedSchemes: []string{"https"},
		allowedPorts:   []int{443},
	}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlはnet.DialerのControlフックでDNS解決後のIPアドレスを検証するため、
// プライベートIPやループバックへの接続はDNS再バインディング経由でもブロックされる。
func (g *OutboundGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(g.allowedSchemes...).
		SetAllowedPorts(g.allowedPorts...).
		Build()

	return safeurl.Client(config).Client
}

// ValidateEndpoint は上流APIのエンドポイントURLを静的に検証する。
// DNS解決は行わない。解決後のIPの検証はNewSafeClientのクライアント側で行われる。
func (g *OutboundGuard) ValidateEndpoint(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !g.isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, g.allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	if ip := net.ParseIP(host); ip != nil && isInternalIP(ip) {
		return fmt.Errorf("blocked IP address: %s", ip.String())
	}

	return nil
}

func (g *OutboundGuard) isAllowedScheme(scheme string) bool {
	for _, allowed := range g.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isInternalIP はプライベート、ループバック、リンクローカル（メタデータIPを含む）、
// 未指定アドレスのいずれかであるかを返す。
func isInternalIP(ip net.IP) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
