package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const registryABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"pinStores","stateMutability":"view",
	 "inputs":[{"name":"","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]}
]`

const storeABIJSON = `[
	{"type":"function","name":"title","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"tagline","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"latestVersion","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"versions","stateMutability":"view",
	 "inputs":[{"name":"","type":"uint256"}],
	 "outputs":[{"name":"","type":"string"}]}
]`

var (
	registryABI = mustABI(registryABIJSON)
	storeABI    = mustABI(storeABIJSON)
)

func mustABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
