package client

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intent-swap/pkg/types"
)

const (
	weth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	usdc = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestZeroExGetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price", r.URL.Path)
		assert.Equal(t, weth, r.URL.Query().Get("sellToken"))
		assert.Equal(t, usdc, r.URL.Query().Get("buyToken"))
		assert.Equal(t, "1500000000000000000", r.URL.Query().Get("sellAmount"))
		assert.Empty(t, r.URL.Query().Get("takerAddress"))
		assert.Equal(t, "secret", r.Header.Get("0x-api-key"))

		w.Write([]byte(`{
			"chainId": 1,
			"price": "1834.12",
			"sellTokenAddress": "` + weth + `",
			"buyTokenAddress": "` + usdc + `",
			"sellAmount": "1500000000000000000",
			"buyAmount": "2751180000",
			"allowanceTarget": "0xdef1c0ded9bec7f1a1670819833240f027b25eff",
			"sources": [{"name": "Uniswap_V3", "proportion": "1"}, {"name": "Curve", "proportion": "0"}]
		}`))
	}))
	defer srv.Close()

	z := NewZeroEx(srv.URL, "secret", nil, quietLogger())
	price, err := z.GetPrice(context.Background(), types.QuoteRequest{
		SellToken:    weth,
		BuyToken:     usdc,
		SellAmount:   "1500000000000000000",
		TakerAddress: "0x0000000000000000000000000000000000000001",
	})
	require.NoError(t, err)
	assert.Equal(t, "1834.12", price.Price)
	assert.Equal(t, "2751180000", price.BuyAmount)
	assert.Len(t, price.ActiveSources(), 1)
}

func TestZeroExValidatesBeforeCalling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	z := NewZeroEx(srv.URL, "", nil, quietLogger())

	_, err := z.GetPrice(context.Background(), types.QuoteRequest{SellToken: weth, BuyToken: usdc, SellAmount: "1", BuyAmount: "1"})
	assert.True(t, types.IsValidation(err))

	_, err = z.GetPrice(context.Background(), types.QuoteRequest{SellToken: weth, BuyToken: usdc})
	assert.True(t, types.IsValidation(err))

	_, err = z.GetQuote(context.Background(), types.QuoteRequest{SellToken: weth, BuyToken: usdc, SellAmount: "1"})
	assert.True(t, types.IsValidation(err))

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestZeroExGetQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "0x0000000000000000000000000000000000000001", r.URL.Query().Get("takerAddress"))
		assert.Equal(t, "100000000", r.URL.Query().Get("buyAmount"))
		w.Write([]byte(`{"chainId":1,"to":"0xdef1c0ded9bec7f1a1670819833240f027b25eff","data":"0x1234","value":"0","gas":"150000","guaranteedPrice":"0.00054"}`))
	}))
	defer srv.Close()

	z := NewZeroEx(srv.URL, "", nil, quietLogger())
	quote, err := z.GetQuote(context.Background(), types.QuoteRequest{
		SellToken:    weth,
		BuyToken:     usdc,
		BuyAmount:    "100000000",
		TakerAddress: "0x0000000000000000000000000000000000000001",
	})
	require.NoError(t, err)
	assert.Equal(t, "0x1234", quote.Data)
	assert.Equal(t, "150000", quote.Gas)
	assert.Equal(t, int64(1), quote.ChainID)
}

func TestZeroExAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":100,"reason":"Validation Failed"}`))
	}))
	defer srv.Close()

	z := NewZeroEx(srv.URL, "", nil, quietLogger())
	_, err := z.GetPrice(context.Background(), types.QuoteRequest{SellToken: weth, BuyToken: usdc, SellAmount: "1"})
	require.Error(t, err)

	var apiErr *types.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "0x", apiErr.Service)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Validation Failed", apiErr.Message)
	assert.Contains(t, apiErr.Body, "Validation Failed")
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	z := NewZeroEx(srv.URL, "", nil, quietLogger())
	for i := 0; i < 10; i++ {
		_, err := z.GetPrice(context.Background(), types.QuoteRequest{SellToken: weth, BuyToken: usdc, SellAmount: "1"})
		assert.True(t, types.IsAPI(err))
	}
	assert.Equal(t, int32(10), atomic.LoadInt32(&calls))
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	z := NewZeroEx(srv.URL, "", nil, quietLogger())
	req := types.QuoteRequest{SellToken: weth, BuyToken: usdc, SellAmount: "1"}
	for i := 0; i < 10; i++ {
		_, err := z.GetPrice(context.Background(), req)
		require.Error(t, err)
	}
	// the breaker trips after five failures
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestEtherscanGasOracleAndEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "gastracker", q.Get("module"))
		assert.Equal(t, "key", q.Get("apikey"))

		switch q.Get("action") {
		case "gasoracle":
			w.Write([]byte(`{"status":"1","message":"OK","result":{"LastBlock":"19000000","SafeGasPrice":"20","ProposeGasPrice":"25.5","FastGasPrice":"31"}}`))
		case "gasestimate":
			assert.Equal(t, "25500000000", q.Get("gasprice"))
			w.Write([]byte(`{"status":"1","message":"OK","result":"45"}`))
		default:
			t.Errorf("unexpected action %s", q.Get("action"))
		}
	}))
	defer srv.Close()

	e := NewEtherscan(srv.URL, "key", 1000, nil, quietLogger())

	oracle, err := e.GasOracle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(19000000), oracle.LastBlock)
	assert.Equal(t, "25.5", oracle.Propose.String())
	assert.Equal(t, "31", oracle.Fast.String())

	eta, err := e.GasEstimate(context.Background(), big.NewInt(25500000000))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, eta)
}

func TestEtherscanTxList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "txlist", q.Get("action"))
		assert.Equal(t, "90000", q.Get("startblock"))
		assert.Equal(t, "100000", q.Get("endblock"))
		assert.Equal(t, "desc", q.Get("sort"))
		w.Write([]byte(`{"status":"1","message":"OK","result":[
			{"hash":"0xabc","timeStamp":"1700000100","confirmations":"3","isError":"0"},
			{"hash":"0xdef","timeStamp":"1700000000","confirmations":"10","isError":"1"}
		]}`))
	}))
	defer srv.Close()

	e := NewEtherscan(srv.URL, "", 1000, nil, quietLogger())
	records, err := e.TxList(context.Background(), "0x0000000000000000000000000000000000000001", 90000, 100000)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "0xabc", records[0].Hash)
	assert.Equal(t, types.ActivitySuccess, records[0].Status())
	assert.Equal(t, types.ActivityError, records[1].Status())
	assert.Equal(t, int64(1700000100), records[0].Timestamp.Unix())
}

func TestEtherscanEmptyAndErrors(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	e := NewEtherscan(srv.URL, "", 1000, nil, quietLogger())

	body = `{"status":"0","message":"No transactions found","result":[]}`
	records, err := e.TxList(context.Background(), "0x0000000000000000000000000000000000000001", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	body = `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`
	_, err = e.GasOracle(context.Background())
	var apiErr *types.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid API Key", apiErr.Message)
}

func TestWitIntents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "sell 1.5 eth for usdc", r.URL.Query().Get("q"))
		w.Write([]byte(`{
			"text": "sell 1.5 eth for usdc",
			"intents": [
				{"id": "1", "name": "ca_sell", "confidence": 0.99},
				{"id": "2", "name": "ca_buy", "confidence": 0.40}
			],
			"entities": {
				"wit$number:number": [{"name": "wit$number", "value": 1.5}],
				"source_currency:source_currency": [{"name": "source_currency", "value": "eth"}],
				"target_currency:target_currency": [{"name": "target_currency", "value": "usdc"}]
			}
		}`))
	}))
	defer srv.Close()

	w := NewWit(srv.URL, "token", nil, quietLogger())
	results, err := w.Intents(context.Background(), "sell 1.5 eth for usdc")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ca_sell", results[0].Name)
	assert.Equal(t, "1.5", results[0].Entities["wit$number"])
	assert.Equal(t, "eth", results[0].Entities["source_currency"])
	assert.Equal(t, "usdc", results[0].Entities["target_currency"])
}

func TestWitNotEnoughEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"intents": [{"id": "1", "name": "ca_sell", "confidence": 0.99}],
			"entities": {
				"source_currency:source_currency": [{"name": "source_currency", "value": "eth"}],
				"target_currency:target_currency": [{"name": "target_currency", "value": "usdc"}]
			}
		}`))
	}))
	defer srv.Close()

	w := NewWit(srv.URL, "token", nil, quietLogger())
	results, err := w.Intents(context.Background(), "sell eth for usdc")
	require.NoError(t, err)
	assert.Empty(t, results)
}
