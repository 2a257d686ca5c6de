// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "sort"

type Network string

const (
	NetworkMainnet  Network = "mainnet"
	NetworkGhostnet Network = "ghostnet"
	NetworkSandbox  Network = "sandbox"
	// NetworkCustom has no preset; rpc_urls must be set.
	NetworkCustom Network = "custom"
)

// NetworkPreset is the node set used when no rpc_urls are configured.
// ParseURL is operated by a different provider than RPCURLs.
type NetworkPreset struct {
	RPCURLs  []string
	ParseURL string
}

var presets = map[Network]NetworkPreset{
	NetworkMainnet: {
		RPCURLs:  []string{"https://mainnet.api.tez.ie", "https://rpc.tzbeta.net"},
		ParseURL: "https://mainnet.smartpy.io",
	},
	NetworkGhostnet: {
		RPCURLs:  []string{"https://ghostnet.tezos.marigold.dev", "https://rpc.ghostnet.teztnets.com"},
		ParseURL: "https://ghostnet.smartpy.io",
	},
	NetworkSandbox: {
		RPCURLs:  []string{"http://localhost:8732"},
		ParseURL: "http://localhost:8733",
	},
}

// LookupNetwork returns the preset for n.
func LookupNetwork(n Network) (NetworkPreset, bool) {
	p, ok := presets[n]
	if !ok {
		return NetworkPreset{}, false
	}
	p.RPCURLs = append([]string(nil), p.RPCURLs...)
	return p, true
}

// Networks lists the accepted network names, presets first.
func Networks() []Network {
	out := make([]Network, 0, len(presets)+1)
	for n := range presets {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return append(out, NetworkCustom)
}

func validNetwork(n Network) bool {
	_, ok := presets[n]
	return ok || n == NetworkCustom
}
