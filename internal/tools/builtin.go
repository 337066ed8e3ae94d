package tools

import (
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/dj707chen/FunctionGemmaLab/internal/llm"
)

// Builtin enumerates the tools implemented in-process.
type Builtin int

const (
	BuiltinUnknown Builtin = iota
	BuiltinWeather
	BuiltinNews
)

// Builtins lists every known builtin in declaration order.
var Builtins = []Builtin{BuiltinWeather, BuiltinNews}

// ParseBuiltin maps a tool name to its Builtin; unknown names yield BuiltinUnknown.
func ParseBuiltin(name string) Builtin {
	switch name {
	case "get_weather":
		return BuiltinWeather
	case "get_news":
		return BuiltinNews
	default:
		return BuiltinUnknown
	}
}

// Name returns the tool name the model uses to call b.
func (b Builtin) Name() string {
	switch b {
	case BuiltinWeather:
		return "get_weather"
	case BuiltinNews:
		return "get_news"
	default:
		return ""
	}
}

func (b Builtin) String() string {
	if n := b.Name(); n != "" {
		return n
	}
	return "unknown"
}

// Spec returns the tool definition advertised to the model.
func (b Builtin) Spec() llm.ToolSpec {
	var desc string
	switch b {
	case BuiltinWeather:
		desc = "Get the current weather for a city."
	case BuiltinNews:
		desc = "Get the current news happening in a city."
	}
	return llm.ToolSpec{
		Name:        b.Name(),
		Description: desc,
		Parameters:  citySchema,
	}
}

// CityArgs are the arguments shared by every builtin.
type CityArgs struct {
	City string `mapstructure:"city"`
}

var citySchema = llm.Schema{
	Type: "object",
	Properties: map[string]llm.Property{
		"city": {Type: "string", Description: "The name of the city"},
	},
	Required: []string{"city"},
}

// DecodeCityArgs decodes a tool call's arguments strictly: unknown keys, wrong
// types and a missing city are rejected.
func DecodeCityArgs(raw map[string]any) (CityArgs, error) {
	var args CityArgs
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &args,
	})
	if err != nil {
		return args, err
	}
	if err := dec.Decode(raw); err != nil {
		return args, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if args.City == "" {
		return args, fmt.Errorf("%w: missing required argument \"city\"", ErrInvalidArguments)
	}
	return args, nil
}

// Execute runs the builtin against already-decoded arguments. Unknown builtins
// return the empty string.
func (b Builtin) Execute(args CityArgs) string {
	switch b {
	case BuiltinWeather:
		return getWeather(args.City)
	case BuiltinNews:
		return getNews(args.City)
	default:
		return ""
	}
}

type weatherReport struct {
	City        string `json:"city"`
	Temperature int    `json:"temperature"`
	Unit        string `json:"unit"`
	Condition   string `json:"condition"`
}

type newsReport struct {
	City     string `json:"city"`
	Headline string `json:"headline"`
	Details  string `json:"details"`
}

func getWeather(city string) string {
	return mustJSON(weatherReport{
		City:        city + "-Normal IL",
		Temperature: 22,
		Unit:        "celsius",
		Condition:   "sunny",
	})
}

func getNews(city string) string {
	return mustJSON(newsReport{
		City:     city + "-Normal IL",
		Headline: "Breaking News in " + city,
		Details:  "Details about the news in " + city,
	})
}

// mustJSON marshals values that cannot fail to encode (plain strings and ints).
func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
