// Package distributed detects the distributed launch environment and joins
// the processes of one training run into a process group.
package distributed

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultMasterAddr = "127.0.0.1"
	DefaultMasterPort = 29500
)

// Env is the launch environment set by the distributed launcher.
type Env struct {
	// WorldSize is the total number of processes. Zero when WORLD_SIZE is not set.
	WorldSize int
	// WorldSizeSet is true when WORLD_SIZE is present.
	WorldSizeSet bool
	// Rank is the global process rank. Defaults to LocalRank when RANK is not set.
	Rank    int
	RankSet bool
	// LocalRank is the process index on its node.
	LocalRank    int
	LocalRankSet bool

	MasterAddr string
	MasterPort int
}

// Addr returns the rendezvous address "MASTER_ADDR:MASTER_PORT".
func (env Env) Addr() string {
	return fmt.Sprintf("%s:%d", env.MasterAddr, env.MasterPort)
}

// Distributed is true when more than one process takes part.
func (env Env) Distributed() bool {
	return env.WorldSizeSet && env.WorldSize > 1
}

// FromEnv reads the launch environment through lookup (os.LookupEnv if nil).
// Malformed integers are errors.
func FromEnv(lookup func(string) (string, bool)) (Env, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := Env{
		MasterAddr: DefaultMasterAddr,
		MasterPort: DefaultMasterPort,
	}

	var err error
	if env.WorldSize, env.WorldSizeSet, err = lookupInt(lookup, "WORLD_SIZE"); err != nil {
		return Env{}, err
	}
	if env.LocalRank, env.LocalRankSet, err = lookupInt(lookup, "LOCAL_RANK"); err != nil {
		return Env{}, err
	}
	if env.Rank, env.RankSet, err = lookupInt(lookup, "RANK"); err != nil {
		return Env{}, err
	}
	if !env.RankSet {
		env.Rank = env.LocalRank
	}
	if v, ok := lookupString(lookup, "MASTER_ADDR"); ok {
		env.MasterAddr = v
	}
	var portSet bool
	if env.MasterPort, portSet, err = lookupInt(lookup, "MASTER_PORT"); err != nil {
		return Env{}, err
	}
	if !portSet {
		env.MasterPort = DefaultMasterPort
	}
	if env.MasterPort > 65535 {
		return Env{}, fmt.Errorf("MASTER_PORT %d out of range", env.MasterPort)
	}
	return env, nil
}

// lookupString trims spaces and surrounding quotes; empty values count as unset.
func lookupString(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.Trim(strings.TrimSpace(v), "\"'")
	return v, v != ""
}

func lookupInt(lookup func(string) (string, bool), key string) (int, bool, error) {
	v, ok := lookupString(lookup, key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("failed to parse %s=%q (%v)", key, v, err)
	}
	if n < 0 {
		return 0, true, fmt.Errorf("%s=%d must not be negative", key, n)
	}
	return n, true, nil
}
