package venue

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/config"
	gomodel "github.com/polymarket/go-order-utils/pkg/model"

	"github.com/clobmm/engine/internal/domain"
)

const (
	polygonChainID = int64(137)

	clobDomainName    = "ClobAuthDomain"
	clobDomainVersion = "1"
	clobAuthMessage   = "This message attests that I control the given wallet"

	zeroAddress = "0x0000000000000000000000000000000000000000"
)

var (
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId)",
	))
	clobAuthTypeHash = crypto.Keccak256Hash([]byte(
		"ClobAuth(address address,string timestamp,uint256 nonce,string message)",
	))
)

// signer holds the wallet material and the order-utils builder needed to
// produce both L1 EIP-712 auth signatures and signed CLOB orders.
type signer struct {
	privateKey   *ecdsa.PrivateKey
	address      common.Address
	orderBuilder builder.ExchangeOrderBuilder
}

func newSigner(privateKeyHex string) (*signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("venue: invalid private signer key: %w", err)
	}
	ob := builder.NewExchangeOrderBuilderImpl(big.NewInt(polygonChainID), nil)
	return &signer{
		privateKey:   key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		orderBuilder: ob,
	}, nil
}

func (s *signer) Address() string { return s.address.Hex() }

// clobAuthDomainSeparator computes the EIP-712 domain separator shared by
// every ClobAuthDomain signature this process makes.
func clobAuthDomainSeparator() common.Hash {
	var buf []byte
	buf = append(buf, eip712DomainTypeHash.Bytes()...)
	buf = append(buf, crypto.Keccak256Hash([]byte(clobDomainName)).Bytes()...)
	buf = append(buf, crypto.Keccak256Hash([]byte(clobDomainVersion)).Bytes()...)
	buf = append(buf, common.LeftPadBytes(big.NewInt(polygonChainID).Bytes(), 32)...)
	return crypto.Keccak256Hash(buf)
}

// signClobAuth produces the L1 signature that lets the venue derive (or
// create) API credentials for this wallet.
func (s *signer) signClobAuth(timestamp, nonce string) (string, error) {
	nonceInt, ok := new(big.Int).SetString(nonce, 10)
	if !ok {
		return "", fmt.Errorf("venue: invalid nonce: %s", nonce)
	}

	var structBuf []byte
	structBuf = append(structBuf, clobAuthTypeHash.Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(s.address.Bytes(), 32)...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(timestamp)).Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(nonceInt.Bytes(), 32)...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(clobAuthMessage)).Bytes()...)
	structHash := crypto.Keccak256Hash(structBuf)

	var rawBuf []byte
	rawBuf = append(rawBuf, 0x19, 0x01)
	rawBuf = append(rawBuf, clobAuthDomainSeparator().Bytes()...)
	rawBuf = append(rawBuf, structHash.Bytes()...)
	msgHash := crypto.Keccak256Hash(rawBuf)

	sig, err := crypto.Sign(msgHash.Bytes(), s.privateKey)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return "0x" + fmt.Sprintf("%x", sig), nil
}

// l2Headers signs one authenticated request with the HMAC secret the venue
// handed back when credentials were derived. Regenerated per attempt so the
// timestamp window never goes stale across retries.
func l2Headers(creds APIKeyCreds, address, method, path, body string) (map[string]string, error) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	msg := ts + strings.ToUpper(method) + path + body

	secretBytes, err := base64.URLEncoding.DecodeString(creds.Secret)
	if err != nil {
		return nil, fmt.Errorf("venue: decode hmac secret: %w", err)
	}

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(msg))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"POLY_ADDRESS":    address,
		"POLY_SIGNATURE":  sig,
		"POLY_TIMESTAMP":  ts,
		"POLY_API_KEY":    creds.APIKey,
		"POLY_PASSPHRASE": creds.Passphrase,
	}, nil
}

// l1Headers signs the derive/create-api-key bootstrap call.
func (s *signer) l1Headers(nonce int64) (map[string]string, error) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	nonceStr := strconv.FormatInt(nonce, 10)
	sig, err := s.signClobAuth(ts, nonceStr)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"POLY_ADDRESS":   s.address.Hex(),
		"POLY_SIGNATURE": sig,
		"POLY_TIMESTAMP": ts,
		"POLY_NONCE":     nonceStr,
	}, nil
}

// buildSignedOrder signs a GTC limit order for tokenID at price/size, using
// integer arithmetic throughout so makerAmount/takerAmount land on exact
// values the CLOB won't reject for float rounding noise. price and size are
// already tick-aligned and sanitized by the quoter before reaching here.
func (s *signer) buildSignedOrder(tokenID string, side domain.Side, price domain.Price, size float64, opts PlaceOptions) (*gomodel.SignedOrder, error) {
	priceF := price.ToDecimal()
	if priceF <= 0 || priceF >= 1 {
		return nil, fmt.Errorf("venue: price out of range: %v", priceF)
	}

	pricePrecision := detectPricePrecision(opts.TickSize)
	priceInt := int64(math.Round(priceF * float64(pricePrecision)))
	sharesCents := int64(math.Floor(size / priceF * 100))

	amountFactor := int64(1_000_000) / (100 * pricePrecision)
	makerAmount := sharesCents * priceInt * amountFactor
	takerAmount := sharesCents * 10000

	if makerAmount <= 0 || takerAmount <= 0 {
		return nil, fmt.Errorf("venue: invalid order amounts: maker=%d taker=%d", makerAmount, takerAmount)
	}

	var verifyingContract gomodel.VerifyingContract
	if opts.NegRisk {
		verifyingContract = gomodel.NegRiskCTFExchange
	} else {
		verifyingContract = gomodel.CTFExchange
	}

	orderSide := gomodel.BUY
	if side == domain.SideSell {
		orderSide = gomodel.SELL
	}

	orderData := &gomodel.OrderData{
		Maker:         s.address.Hex(),
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   strconv.FormatInt(makerAmount, 10),
		TakerAmount:   strconv.FormatInt(takerAmount, 10),
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        s.address.Hex(),
		Expiration:    "0",
		Side:          orderSide,
		SignatureType: gomodel.EOA,
	}

	signed, err := s.orderBuilder.BuildSignedOrder(s.privateKey, orderData, verifyingContract)
	if err != nil {
		return nil, fmt.Errorf("venue: build signed order: %w", err)
	}
	return signed, nil
}

// detectPricePrecision maps a tick size to the integer multiplier that
// turns a tick-aligned decimal price into an exact integer.
func detectPricePrecision(tick domain.TickSize) int64 {
	switch {
	case tick >= 0.1:
		return 10
	case tick >= 0.01:
		return 100
	case tick >= 0.001:
		return 1000
	default:
		return 10000
	}
}

// chainContracts is retained for parity with the order-utils config lookup;
// callers that need the exchange addresses directly (e.g. diagnostics) can
// fetch them without re-deriving a signer.
func chainContracts() (*config.Contracts, error) {
	return config.GetContracts(polygonChainID)
}
