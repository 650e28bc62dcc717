package security

import (
	"fmt"
	"mime"
	"net"
	"net/url"
	"strings"
)

// allowedSchemes は添付URLで許可されるスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks は添付URLのホストとして拒否するネットワーク範囲。
// クライアントが添付を取得する際に内部ネットワークへ誘導されるのを防ぐ。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック
		"127.0.0.0/8",
		// リンクローカル（クラウドメタデータIPを含む）
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// ValidateMediaURL は添付URLが絶対http(s)URLで、内部アドレスを指していないことを検証する。
// DNS解決は行わない静的な検証。
func ValidateMediaURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if !isAllowedScheme(parsed.Scheme) {
		return fmt.Errorf("disallowed scheme: %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

// ValidateMediaType は添付のMIMEタイプが type/subtype 形式であることを検証する。空は許可する。
func ValidateMediaType(mediaType string) error {
	if mediaType == "" {
		return nil
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil || !strings.Contains(mt, "/") {
		return fmt.Errorf("invalid media type: %q", mediaType)
	}
	return nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
