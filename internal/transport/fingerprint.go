package transport

import (
	"fmt"

	"github.com/bogdanfinn/fhttp/http2"
	"github.com/bogdanfinn/tls-client/profiles"
	tls "github.com/bogdanfinn/utls"

	"valauth/internal/autherr"
)

// DefaultCipherSuites is the ordered suite list the Riot client offers.
var DefaultCipherSuites = []string{
	"TLS_CHACHA20_POLY1305_SHA256",
	"TLS_AES_128_GCM_SHA256",
	"TLS_AES_256_GCM_SHA384",
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256",
}

// Suite is a resolved cipher suite.
type Suite struct {
	Name    string
	ID      uint16
	Version uint16 // protocol version the suite belongs to
}

// cipherSuites maps IANA names to utls identifiers.
var cipherSuites = map[string]Suite{
	"TLS_AES_128_GCM_SHA256":       {ID: tls.TLS_AES_128_GCM_SHA256, Version: tls.VersionTLS13},
	"TLS_AES_256_GCM_SHA384":       {ID: tls.TLS_AES_256_GCM_SHA384, Version: tls.VersionTLS13},
	"TLS_CHACHA20_POLY1305_SHA256": {ID: tls.TLS_CHACHA20_POLY1305_SHA256, Version: tls.VersionTLS13},

	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256":       {ID: tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256, Version: tls.VersionTLS12},
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":         {ID: tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256, Version: tls.VersionTLS12},
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384":       {ID: tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384, Version: tls.VersionTLS12},
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":         {ID: tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384, Version: tls.VersionTLS12},
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256": {ID: tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256, Version: tls.VersionTLS12},
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256":   {ID: tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256, Version: tls.VersionTLS12},
	"TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA":            {ID: tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA, Version: tls.VersionTLS12},
	"TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA":            {ID: tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA, Version: tls.VersionTLS12},
}

// LookupSuites resolves names against the suite table, preserving order.
// An unknown or repeated name is a ConfigurationError; there is no fallback.
func LookupSuites(names []string) ([]Suite, error) {
	if len(names) == 0 {
		return nil, autherr.New(autherr.ConfigurationError, "transport", fmt.Errorf("no cipher suites configured"))
	}

	seen := make(map[string]bool, len(names))
	suites := make([]Suite, 0, len(names))
	for _, name := range names {
		suite, ok := cipherSuites[name]
		if !ok {
			return nil, autherr.New(autherr.ConfigurationError, "transport", fmt.Errorf("cannot look up cipher suite %q", name))
		}
		if seen[name] {
			return nil, autherr.New(autherr.ConfigurationError, "transport", fmt.Errorf("cipher suite %q listed twice", name))
		}
		seen[name] = true
		suite.Name = name
		suites = append(suites, suite)
	}
	return suites, nil
}

// supportedVersions returns the protocol versions implied by suites,
// newest first.
func supportedVersions(suites []Suite) []uint16 {
	var tls13, tls12 bool
	for _, s := range suites {
		switch s.Version {
		case tls.VersionTLS13:
			tls13 = true
		case tls.VersionTLS12:
			tls12 = true
		}
	}

	var versions []uint16
	if tls13 {
		versions = append(versions, tls.VersionTLS13)
	}
	if tls12 {
		versions = append(versions, tls.VersionTLS12)
	}
	return versions
}

func suiteIDs(suites []Suite) []uint16 {
	ids := make([]uint16, len(suites))
	for i, s := range suites {
		ids[i] = s.ID
	}
	return ids
}

// clientHelloSpec builds the ClientHello for the resolved suites. Extension
// order is fixed.
func clientHelloSpec(suites []Suite) tls.ClientHelloSpec {
	versions := supportedVersions(suites)
	offersTLS13 := versions[0] == tls.VersionTLS13
	offersTLS12 := versions[len(versions)-1] == tls.VersionTLS12

	extensions := []tls.TLSExtension{
		&tls.SNIExtension{},
		&tls.ExtendedMasterSecretExtension{},
	}
	if offersTLS12 {
		extensions = append(extensions, &tls.RenegotiationInfoExtension{
			Renegotiation: tls.RenegotiateOnceAsClient,
		})
	}
	extensions = append(extensions,
		&tls.SupportedCurvesExtension{Curves: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
			tls.CurveP384,
		}},
		&tls.SupportedPointsExtension{SupportedPoints: []byte{
			tls.PointFormatUncompressed,
		}},
		&tls.SessionTicketExtension{},
		&tls.ALPNExtension{AlpnProtocols: []string{
			"h2",
			"http/1.1",
		}},
		&tls.StatusRequestExtension{},
		&tls.SignatureAlgorithmsExtension{SupportedSignatureAlgorithms: []tls.SignatureScheme{
			tls.ECDSAWithP384AndSHA384,
			tls.ECDSAWithP256AndSHA256,
			tls.Ed25519,
			tls.PSSWithSHA512,
			tls.PSSWithSHA384,
			tls.PSSWithSHA256,
			tls.PKCS1WithSHA512,
			tls.PKCS1WithSHA384,
			tls.PKCS1WithSHA256,
		}},
		&tls.SCTExtension{},
	)
	if offersTLS13 {
		extensions = append(extensions,
			&tls.KeyShareExtension{KeyShares: []tls.KeyShare{
				{Group: tls.X25519},
			}},
			&tls.PSKKeyExchangeModesExtension{Modes: []uint8{
				tls.PskModeDHE,
			}},
		)
	}
	extensions = append(extensions, &tls.SupportedVersionsExtension{Versions: versions})

	return tls.ClientHelloSpec{
		CipherSuites: suiteIDs(suites),
		CompressionMethods: []byte{
			tls.CompressionNone,
		},
		Extensions: extensions,
	}
}

// newClientProfile wraps the ClientHello and the HTTP/2 settings of the
// Riot client's HTTP stack into a tls-client profile.
func newClientProfile(suites []Suite) profiles.ClientProfile {
	return profiles.NewClientProfile(
		tls.ClientHelloID{
			Client:               "RiotClient",
			RandomExtensionOrder: false,
			Version:              "60.0",
			Seed:                 nil,
			SpecFactory: func() (tls.ClientHelloSpec, error) {
				return clientHelloSpec(suites), nil
			},
		},
		map[http2.SettingID]uint32{
			http2.SettingEnablePush:        0,
			http2.SettingInitialWindowSize: 2097152,
			http2.SettingMaxFrameSize:      16384,
			http2.SettingMaxHeaderListSize: 16777216,
		},
		[]http2.SettingID{
			http2.SettingEnablePush,
			http2.SettingInitialWindowSize,
			http2.SettingMaxFrameSize,
			http2.SettingMaxHeaderListSize,
		},
		PseudoHeaderOrder,
		5177345,
		nil,
		nil,
	)
}
