// Package security provides SSRF protection for outbound HTTP requests
// issued during workflow execution: LLM provider dispatch and
// OutputSender's HTTP-mode job-status PATCH both resolve and validate
// every URL (including redirect targets) through the same SSRFProtection
// before a request is sent.
//
// # Basic Usage
//
//	import "github.com/weavelane/llmflow/pkg/security"
//
//	protection := security.NewSSRFProtectionWithConfig(security.SSRFConfig{
//	    BlockPrivateIPs:    true,
//	    BlockLocalhost:     true,
//	    BlockLinkLocal:     true,
//	    BlockCloudMetadata: true,
//	})
//
//	if err := protection.ValidateURL(url); err != nil {
//	    return fmt.Errorf("blocked url: %w", err)
//	}
//
// # What It Blocks
//
//   - Private IP ranges (RFC 1918) when BlockPrivateIPs is set
//   - Loopback addresses when BlockLocalhost is set
//   - Link-local addresses (including 169.254.0.0/16) when BlockLinkLocal
//     is set
//   - Cloud metadata endpoints (e.g. 169.254.169.254) when
//     BlockCloudMetadata is set
//   - Non-HTTP(S) schemes
//
// An AllowedDomains list, when non-empty, rejects every hostname not on
// it; hostnames on the list are still checked against the block flags
// above.
// BlockedDomains is an additional denylist checked independently of the
// block flags.
//
// # Thread Safety
//
// SSRFProtection holds no mutable state after construction and is safe
// for concurrent use.
package security
