package client

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	tls "github.com/refraction-networking/utls"
)

// FingerprintSpec holds either a preset ID or a JA3 string. The JA3 string is
// parsed again on every dial because uTLS fills the extensions in place.
type FingerprintSpec struct {
	ID  tls.ClientHelloID
	JA3 string
}

// presets maps friendly names to uTLS ClientHelloIDs.
var presets = map[string]tls.ClientHelloID{
	"golang":      tls.HelloGolang,
	"chrome-133":  tls.HelloChrome_133,
	"chrome-131":  tls.HelloChrome_131,
	"chrome-120":  tls.HelloChrome_120,
	"firefox-120": tls.HelloFirefox_120,
	"safari-16":   tls.HelloSafari_16_0,
	"edge-106":    tls.HelloEdge_106,
	"chrome-auto": tls.HelloChrome_Auto,
}

// Fingerprints returns the preset names accepted by WithFingerprint, sorted.
func Fingerprints() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveFingerprint returns the FingerprintSpec for the given fingerprint name.
// If not found in presets, treats it as a JA3 string and parses it.
// Falls back to the plain Go ClientHello on error.
func resolveFingerprint(fp string) (FingerprintSpec, error) {
	if fp == "" {
		return FingerprintSpec{ID: tls.HelloGolang}, nil
	}

	if id, ok := presets[strings.ToLower(fp)]; ok {
		return FingerprintSpec{ID: id}, nil
	}

	if isJA3String(fp) {
		if _, err := parseJA3(fp); err != nil {
			return FingerprintSpec{ID: tls.HelloGolang}, err
		}
		return FingerprintSpec{ID: tls.HelloCustom, JA3: fp}, nil
	}

	return FingerprintSpec{ID: tls.HelloGolang}, fmt.Errorf("unknown fingerprint %q", fp)
}

// helloSpec returns a fresh ClientHello for one connection, with its ALPN
// extension rewritten to protos. A nil spec means the ID is used as is and
// the ALPN list comes from tls.Config.NextProtos.
func (f FingerprintSpec) helloSpec(protos []string) (*tls.ClientHelloSpec, error) {
	if f.ID == tls.HelloGolang {
		return nil, nil
	}
	var spec tls.ClientHelloSpec
	if f.JA3 != "" {
		s, err := parseJA3(f.JA3)
		if err != nil {
			return nil, err
		}
		spec = *s
	} else {
		s, err := tls.UTLSIdToSpec(f.ID)
		if err != nil {
			return nil, err
		}
		spec = s
	}
	if len(protos) == 0 {
		// the extension cannot be empty, and browser presets always carry it
		protos = []string{"http/1.1"}
	}
	exts := make([]tls.TLSExtension, len(spec.Extensions))
	for i, ext := range spec.Extensions {
		if _, ok := ext.(*tls.ALPNExtension); ok {
			ext = &tls.ALPNExtension{AlpnProtocols: append([]string(nil), protos...)}
		}
		exts[i] = ext
	}
	spec.Extensions = exts
	return &spec, nil
}

// isJA3String checks if a string looks like a JA3 fingerprint.
// Format: "version,ciphers,extensions,groups,pointFormats"
func isJA3String(s string) bool {
	parts := strings.Split(s, ",")
	if len(parts) < 3 {
		return false
	}
	_, err := strconv.ParseUint(parts[0], 10, 16)
	return err == nil
}

// parseJA3 parses a JA3 string into a ClientHelloSpec.
func parseJA3(ja3 string) (*tls.ClientHelloSpec, error) {
	parts := strings.Split(ja3, ",")
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid JA3 string: expected at least 3 parts, got %d", len(parts))
	}

	tlsVersionRaw, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid TLS version: %s", parts[0])
	}
	tlsVersion := uint16(tlsVersionRaw)

	ciphers, err := parseUint16List(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid ciphers: %w", err)
	}

	extIDs, err := parseUint16List(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid extensions: %w", err)
	}

	var groups []tls.CurveID
	if len(parts) > 3 && parts[3] != "" {
		groupInts, err := parseUint16List(parts[3])
		if err == nil {
			for _, g := range groupInts {
				groups = append(groups, tls.CurveID(g))
			}
		}
	}

	var pointFormats []uint8
	if len(parts) > 4 && parts[4] != "" {
		pfInts, err := parseUint16List(parts[4])
		if err == nil {
			for _, pf := range pfInts {
				pointFormats = append(pointFormats, uint8(pf))
			}
		}
	}

	// JA3 records the legacy version field; supported_versions offers 1.3
	tlsVersMax := tlsVersion
	if tlsVersMax < tls.VersionTLS12 {
		tlsVersMax = tls.VersionTLS12
	}
	if slices.Contains(extIDs, 43) {
		tlsVersMax = tls.VersionTLS13
	}

	return &tls.ClientHelloSpec{
		TLSVersMin:         tls.VersionTLS10,
		TLSVersMax:         tlsVersMax,
		CipherSuites:       ciphers,
		CompressionMethods: []uint8{0},
		Extensions:         buildExtensions(extIDs, groups, pointFormats),
	}, nil
}

// buildExtensions constructs a list of TLS extensions from JA3 extension IDs.
func buildExtensions(extIDs []uint16, groups []tls.CurveID, pointFormats []uint8) []tls.TLSExtension {
	var exts []tls.TLSExtension

	for _, id := range extIDs {
		switch id {
		case 0:
			exts = append(exts, &tls.SNIExtension{})
		case 5:
			exts = append(exts, &tls.StatusRequestExtension{})
		case 10:
			if len(groups) == 0 {
				groups = []tls.CurveID{tls.X25519, tls.CurveP256, tls.CurveP384}
			}
			exts = append(exts, &tls.SupportedCurvesExtension{Curves: groups})
		case 11:
			if len(pointFormats) == 0 {
				pointFormats = []uint8{0}
			}
			exts = append(exts, &tls.SupportedPointsExtension{SupportedPoints: pointFormats})
		case 13:
			exts = append(exts, &tls.SignatureAlgorithmsExtension{
				SupportedSignatureAlgorithms: []tls.SignatureScheme{
					tls.ECDSAWithP256AndSHA256,
					tls.PSSWithSHA256,
					tls.PKCS1WithSHA256,
					tls.ECDSAWithP384AndSHA384,
					tls.PSSWithSHA384,
					tls.PKCS1WithSHA384,
					tls.PSSWithSHA512,
					tls.PKCS1WithSHA512,
				},
			})
		case 16:
			// protocols are filled in by helloSpec
			exts = append(exts, &tls.ALPNExtension{})
		case 18:
			exts = append(exts, &tls.SCTExtension{})
		case 21:
			exts = append(exts, &tls.UtlsPaddingExtension{GetPaddingLen: tls.BoringPaddingStyle})
		case 23:
			exts = append(exts, &tls.ExtendedMasterSecretExtension{})
		case 27:
			exts = append(exts, &tls.UtlsCompressCertExtension{
				Algorithms: []tls.CertCompressionAlgo{tls.CertCompressionBrotli},
			})
		case 35:
			exts = append(exts, &tls.SessionTicketExtension{})
		case 43:
			exts = append(exts, &tls.SupportedVersionsExtension{
				Versions: []uint16{tls.VersionTLS13, tls.VersionTLS12},
			})
		case 45:
			exts = append(exts, &tls.PSKKeyExchangeModesExtension{
				Modes: []uint8{tls.PskModeDHE},
			})
		case 51:
			exts = append(exts, &tls.KeyShareExtension{
				KeyShares: []tls.KeyShare{{Group: tls.X25519}},
			})
		case 65281:
			exts = append(exts, &tls.RenegotiationInfoExtension{
				Renegotiation: tls.RenegotiateOnceAsClient,
			})
		default:
			exts = append(exts, &tls.GenericExtension{Id: id})
		}
	}
	return exts
}

// parseUint16List parses a "-" separated list of uint16 values.
func parseUint16List(s string) ([]uint16, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "-")
	result := make([]uint16, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", p, err)
		}
		result = append(result, uint16(n))
	}
	return result, nil
}
