// Package randutil implements random utilities.
package randutil

import (
	"math/rand"
	"sync"
	"time"
)

var (
	mu  sync.Mutex
	rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func intn(n int) int {
	mu.Lock()
	defer mu.Unlock()
	return rnd.Intn(n)
}

// Word returns a random human-readable word, used as the default model name.
func Word() string {
	return words[intn(len(words))]
}

var words = []string{
	"autumn",
	"sun",
	"splendid",
	"sunny",
	"original",
	"dream",
	"whole",
	"flow",
	"cherry",
	"grand",
	"tree",
	"frost",
	"deluxe",
	"superb",
	"morning",
	"sparkling",
	"wandering",
	"summertime",
	"butterfly",
	"boldly",
	"green",
	"river",
	"breeze",
	"hiking",
	"proud",
	"great",
	"mochi",
	"floral",
	"spectacular",
	"dune",
	"modern",
	"delight",
	"lively",
	"forte",
	"waterfall",
	"embark",
	"flower",
	"roadtrip",
	"atlas",
	"grass",
	"haze",
	"spotlight",
	"glacial",
	"mountain",
	"snowflake",
	"misty",
	"summer",
	"icy",
	"coffee",
	"awesome",
	"spring",
	"twilight",
	"blue",
	"coral",
	"everest",
	"galaxy",
	"wind",
	"watermelon",
	"sea",
	"ocean",
	"sunrise",
	"waterfront",
	"magnificent",
	"tropical",
	"sunset",
	"blueshift",
	"dynamic",
	"forest",
	"impressive",
	"spheres",
	"innovation",
	"apple",
	"inventive",
	"cloud",
	"sound",
	"sky",
	"surf",
	"island",
	"water",
	"wildflower",
	"wave",
	"charisma",
	"amber",
	"oscar",
	"prime",
	"frosty",
	"paper",
	"star",
	"onion",
	"hawaii",
	"otter",
	"varzea",
	"obidos",
}
