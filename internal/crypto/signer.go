package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	eip712DomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)
	clobAuthTypeHash = ethcrypto.Keccak256(
		[]byte("ClobAuth(address address,uint256 timestamp,uint256 nonce)"),
	)
)

const (
	clobAuthDomainName    = "ClobAuthDomain"
	clobAuthDomainVersion = "1"

	// PolygonChainID is Polygon mainnet, where Polymarket settles.
	PolygonChainID = 137
)

// Signer produces the wallet's L1 authentication signature: an EIP-712
// ClobAuth message proving control of the address. It never signs orders.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	domainSep  []byte
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
// chainID <= 0 selects Polygon mainnet.
func NewSigner(privateKeyHex string, chainID int) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	if chainID <= 0 {
		chainID = PolygonChainID
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		domainSep:  domainSeparator(clobAuthDomainName, clobAuthDomainVersion, chainID),
	}, nil
}

// Address returns the checksummed wallet address.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// SignClobAuth signs ClobAuth{address, timestamp, nonce} and returns the
// 65-byte signature hex-encoded with a 0x prefix.
func (s *Signer) SignClobAuth(timestamp, nonce int64) (string, error) {
	structHash := ethcrypto.Keccak256(
		concatBytes(
			clobAuthTypeHash,
			common.LeftPadBytes(s.address.Bytes(), 32),
			uint256(big.NewInt(timestamp)),
			uint256(big.NewInt(nonce)),
		),
	)
	digest := ethcrypto.Keccak256(concatBytes([]byte{0x19, 0x01}, s.domainSep, structHash))

	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}
	// go-ethereum returns v in {0,1}; EIP-712 verifiers expect {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// L1Headers returns the POLY_* headers for an L1-authenticated request.
func (s *Signer) L1Headers(timestamp, nonce int64) (map[string]string, error) {
	sig, err := s.SignClobAuth(timestamp, nonce)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"POLY_ADDRESS":   s.Address(),
		"POLY_SIGNATURE": sig,
		"POLY_TIMESTAMP": strconv.FormatInt(timestamp, 10),
		"POLY_NONCE":     strconv.FormatInt(nonce, 10),
	}, nil
}

// RecoverClobAuth returns the address that produced sig over the ClobAuth
// message for address, timestamp and nonce.
func RecoverClobAuth(chainID int, address string, timestamp, nonce int64, sig string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil {
		return "", fmt.Errorf("crypto/signer: decode signature: %w", err)
	}
	if len(raw) != 65 {
		return "", fmt.Errorf("crypto/signer: signature is %d bytes, want 65", len(raw))
	}
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	if chainID <= 0 {
		chainID = PolygonChainID
	}

	structHash := ethcrypto.Keccak256(
		concatBytes(
			clobAuthTypeHash,
			common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32),
			uint256(big.NewInt(timestamp)),
			uint256(big.NewInt(nonce)),
		),
	)
	sep := domainSeparator(clobAuthDomainName, clobAuthDomainVersion, chainID)
	digest := ethcrypto.Keccak256(concatBytes([]byte{0x19, 0x01}, sep, structHash))

	pub, err := ethcrypto.SigToPub(digest, raw)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: recover: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub).Hex(), nil
}

func domainSeparator(name, version string, chainID int) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			eip712DomainTypeHash,
			ethcrypto.Keccak256([]byte(name)),
			ethcrypto.Keccak256([]byte(version)),
			uint256(big.NewInt(int64(chainID))),
		),
	)
}

func uint256(n *big.Int) []byte {
	return common.LeftPadBytes(n.Bytes(), 32)
}

func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
