package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// registryABI is the subset of the MedicalRecordRegistry contract interface
// the backend uses. Content hashes are stored as bytes32; owner subjects are
// DID strings; delegates are plain addresses.
const registryABI = `[
	{"type":"function","name":"addRecord","stateMutability":"nonpayable","inputs":[{"name":"recordHash","type":"bytes32"},{"name":"patientDid","type":"string"},{"name":"recordType","type":"string"}],"outputs":[]},
	{"type":"function","name":"grantAccess","stateMutability":"nonpayable","inputs":[{"name":"recordHash","type":"bytes32"},{"name":"delegate","type":"address"}],"outputs":[]},
	{"type":"function","name":"revokeAccess","stateMutability":"nonpayable","inputs":[{"name":"recordHash","type":"bytes32"},{"name":"delegate","type":"address"}],"outputs":[]},
	{"type":"function","name":"checkAccess","stateMutability":"view","inputs":[{"name":"recordHash","type":"bytes32"},{"name":"delegate","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getRecordsBySubject","stateMutability":"view","inputs":[{"name":"patientDid","type":"string"}],"outputs":[{"name":"","type":"bytes32[]"}]}
]`

// ClientConfig carries everything needed to reach the registry contract.
type ClientConfig struct {
	RPCURL          string
	ContractAddress string
	// PrivateKeyHex signs anchoring and grant/revoke transactions. May carry a
	// 0x prefix.
	PrivateKeyHex string
	ChainID       int64
}

// Client implements Oracle against an Ethereum JSON-RPC node.
type Client struct {
	eth      *ethclient.Client
	contract *bind.BoundContract
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	log      zerolog.Logger
}

// Dial connects to the node, verifies the configuration, and returns a ready
// client. The connection is long-lived; ethclient multiplexes requests over it.
func Dial(ctx context.Context, cfg ClientConfig, log zerolog.Logger) (*Client, error) {
	if !IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("chain: invalid contract address %q", cfg.ContractAddress)
	}

	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: parse private key: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse registry ABI: %w", err)
	}

	addr := common.HexToAddress(cfg.ContractAddress)
	return &Client{
		eth:      eth,
		contract: bind.NewBoundContract(addr, parsed, eth, eth, eth),
		key:      key,
		chainID:  big.NewInt(cfg.ChainID),
		log:      log.With().Str("component", "chain").Logger(),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) AnchorHash(ctx context.Context, contentHash, ownerSubject, recordType string) (string, error) {
	hash, err := parseContentHash("anchor_hash", contentHash)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, "anchor_hash", "addRecord", hash, ownerSubject, recordType)
}

func (c *Client) Grant(ctx context.Context, contentHash, delegate string) (string, error) {
	hash, addr, err := parseHashAndDelegate("grant", contentHash, delegate)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, "grant", "grantAccess", hash, addr)
}

func (c *Client) Revoke(ctx context.Context, contentHash, delegate string) (string, error) {
	hash, addr, err := parseHashAndDelegate("revoke", contentHash, delegate)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, "revoke", "revokeAccess", hash, addr)
}

func (c *Client) CheckAccess(ctx context.Context, contentHash, delegate string) (bool, error) {
	hash, addr, err := parseHashAndDelegate("check_access", contentHash, delegate)
	if err != nil {
		return false, err
	}

	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "checkAccess", hash, addr); err != nil {
		return false, classify("check_access", err)
	}
	granted, ok := out[0].(bool)
	if !ok {
		return false, &OracleError{Kind: KindUnavailable, Op: "check_access", Err: errors.New("unexpected return type")}
	}
	return granted, nil
}

func (c *Client) ListHashesForSubject(ctx context.Context, ownerSubject string) ([]string, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "getRecordsBySubject", ownerSubject); err != nil {
		return nil, classify("list_hashes", err)
	}
	raw, ok := out[0].([][32]byte)
	if !ok {
		return nil, &OracleError{Kind: KindUnavailable, Op: "list_hashes", Err: errors.New("unexpected return type")}
	}
	hashes := make([]string, len(raw))
	for i, h := range raw {
		hashes[i] = hex.EncodeToString(h[:])
	}
	return hashes, nil
}

// transact signs, sends, and waits for one contract transaction, returning the
// transaction hash as the anchor id. A failed receipt is a rejection: the node
// accepted the transaction but the contract did not.
func (c *Client) transact(ctx context.Context, op, method string, args ...interface{}) (string, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return "", &OracleError{Kind: KindUnavailable, Op: op, Err: err}
	}
	opts.Context = ctx

	tx, err := c.contract.Transact(opts, method, args...)
	if err != nil {
		return "", classify(op, err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return "", classify(op, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", &OracleError{Kind: KindRejected, Op: op, Err: fmt.Errorf("transaction %s reverted", tx.Hash().Hex())}
	}

	c.log.Debug().Str("op", op).Str("tx", tx.Hash().Hex()).Msg("oracle transaction mined")
	return tx.Hash().Hex(), nil
}

// classify maps a node or EVM error to an OracleError kind. An explicit revert
// is a rejection; everything else (transport errors, timeouts, node trouble)
// is unavailability and must never read as an access denial.
func classify(op string, err error) *OracleError {
	kind := KindUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindUnavailable
	} else if strings.Contains(strings.ToLower(err.Error()), "execution reverted") {
		kind = KindRejected
	}
	return &OracleError{Kind: kind, Op: op, Err: err}
}

// parseContentHash validates and decodes a 64-character lowercase hex content
// hash into the bytes32 form the contract stores.
func parseContentHash(op, contentHash string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(contentHash)
	if err != nil || len(raw) != 32 {
		return out, &OracleError{Kind: KindBadInput, Op: op, Err: fmt.Errorf("content hash must be 64 hex characters")}
	}
	copy(out[:], raw)
	return out, nil
}

func parseHashAndDelegate(op, contentHash, delegate string) ([32]byte, common.Address, error) {
	hash, err := parseContentHash(op, contentHash)
	if err != nil {
		return hash, common.Address{}, err
	}
	if !IsHexAddress(delegate) {
		return hash, common.Address{}, &OracleError{Kind: KindBadInput, Op: op, Err: fmt.Errorf("delegate must be a 0x-prefixed 40-hex address")}
	}
	return hash, common.HexToAddress(delegate), nil
}

// IsHexAddress enforces the wire format for delegate principals: 0x prefix,
// 42 characters total, remainder valid hex.
func IsHexAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && len(s) == 42 && common.IsHexAddress(s)
}
