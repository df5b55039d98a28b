package auth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/jonwraymond/pinog/cache"
)

// Typed-data domain of customization signatures.
const (
	DomainName    = "PinV"
	DomainVersion = "1"
	PrimaryType   = "CustomizeOG"
)

var customizeTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	PrimaryType: {
		{Name: "pinId", Type: "uint256"},
		{Name: "ver", Type: "string"},
		{Name: "paramsHash", Type: "bytes32"},
		{Name: "ts", Type: "uint256"},
	},
}

// Domain identifies the chain and contract signatures are bound to.
type Domain struct {
	ChainID           int64
	VerifyingContract common.Address
}

// TypedData builds the CustomizeOG message for pinID and b. Missing params
// sign as the empty object.
func TypedData(d Domain, pinID uint64, b *Bundle) (apitypes.TypedData, error) {
	params := b.Params
	if params == nil {
		params = map[string]any{}
	}
	paramsHash, err := cache.ParamsHash(params)
	if err != nil {
		return apitypes.TypedData{}, fmt.Errorf("auth: hash params: %w", err)
	}

	return apitypes.TypedData{
		Types:       customizeTypes,
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainId:           math.NewHexOrDecimal256(d.ChainID),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"pinId":      new(big.Int).SetUint64(pinID),
			"ver":        b.Version,
			"paramsHash": paramsHash,
			"ts":         big.NewInt(b.Timestamp),
		},
	}, nil
}

// SigningHash returns the EIP-712 digest a wallet signs for pinID and b.
func SigningHash(d Domain, pinID uint64, b *Bundle) ([]byte, error) {
	td, err := TypedData(d, pinID, b)
	if err != nil {
		return nil, err
	}
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("auth: typed data hash: %w", err)
	}
	return hash, nil
}

// RecoverSigner returns the address that produced signature over hash.
// Signatures are 65-byte r||s||v hex; v may be 0/1 or 27/28.
func RecoverSigner(hash []byte, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
