/*
Package yaml provides methods to parse training option files into
config stores from YAML documents.
*/
package yaml

import (
	"fmt"
	"io/ioutil"

	"github.com/MaiRajborirug/SPORF/config"
	yaml "gopkg.in/yaml.v2"
)

/*
ReadOptions takes a slice of bytes with training options in YML and
returns a config.Store with the parsed settings or an error.
The YML is expected to be an object containing an options property.
The value for this should be an object with a property per setting,
whose value is a string, an integer or a floating-point number.
*/
func ReadOptions(md []byte) (*config.Store, error) {
	document := struct {
		Options map[string]interface{}
	}{}
	err := yaml.Unmarshal(md, &document)
	if err != nil {
		return nil, fmt.Errorf("parsing yml options: %v", err)
	}
	if document.Options == nil {
		return nil, fmt.Errorf("options file has no option information")
	}
	store := config.NewStore()
	for name, v := range document.Options {
		switch value := v.(type) {
		case string:
			store.Set(name, config.StringValue(value))
		case int:
			store.Set(name, config.IntValue(int64(value)))
		case int64:
			store.Set(name, config.IntValue(value))
		case float64:
			store.Set(name, config.FloatValue(value))
		default:
			return nil, fmt.Errorf("invalid value of type %T for option %s", v, name)
		}
	}
	return store, nil
}

/*
ReadOptionsFromFile takes a filepath string, reads its contents and
uses ReadOptions to parse it and return a config.Store with the parsed
settings or an error. If the file indicated by the filepath cannot be
opened for reading an error will be returned.
*/
func ReadOptionsFromFile(filepath string) (*config.Store, error) {
	md, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading options file %s: %v", filepath, err)
	}
	return ReadOptions(md)
}
