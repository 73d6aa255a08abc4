package swap

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pandodao/generic"
	"github.com/sabicash/sabicash/core"
)

const factoryABI = `[
{"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"fee","type":"uint24"}],"name":"getPool","outputs":[{"name":"pool","type":"address"}],"stateMutability":"view","type":"function"}
]`

const quoterABI = `[
{"inputs":[{"name":"path","type":"bytes"},{"name":"amountIn","type":"uint256"}],"name":"quoteExactInput","outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96AfterList","type":"uint160[]"},{"name":"initializedTicksCrossedList","type":"uint32[]"},{"name":"gasEstimate","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"fee","type":"uint24"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"params","type":"tuple"}],"name":"quoteExactInputSingle","outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96After","type":"uint160"},{"name":"initializedTicksCrossed","type":"uint32"},{"name":"gasEstimate","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
]`

const routerABI = `[
{"inputs":[{"components":[{"name":"path","type":"bytes"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"}],"name":"params","type":"tuple"}],"name":"exactInput","outputs":[{"name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"params","type":"tuple"}],"name":"exactInputSingle","outputs":[{"name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"}
]`

var (
	factoryParsed = generic.Must(abi.JSON(strings.NewReader(factoryABI)))
	quoterParsed  = generic.Must(abi.JSON(strings.NewReader(quoterABI)))
	routerParsed  = generic.Must(abi.JSON(strings.NewReader(routerABI)))
)

// tuple arguments, fields follow the abi component names

type quoteSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactInputParams struct {
	Path             []byte
	Recipient        common.Address
	Deadline         *big.Int
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

const (
	addressLength = common.AddressLength
	feeLength     = 3
	maxFee        = 1<<24 - 1
)

// encodePath packs a route the way the quoter and router expect it:
// token, then fee and token for every hop.
func encodePath(route []core.SwapHop) ([]byte, error) {
	if len(route) == 0 {
		return nil, errors.New("empty route")
	}

	path := make([]byte, 0, addressLength+len(route)*(feeLength+addressLength))
	path = append(path, route[0].TokenIn.Bytes()...)

	for i, hop := range route {
		if i > 0 && hop.TokenIn != route[i-1].TokenOut {
			return nil, errors.New("route hops are not connected")
		}

		if hop.Fee > maxFee {
			return nil, errors.New("fee overflows uint24")
		}

		path = append(path, byte(hop.Fee>>16), byte(hop.Fee>>8), byte(hop.Fee))
		path = append(path, hop.TokenOut.Bytes()...)
	}

	return path, nil
}
