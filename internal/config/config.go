// Package config loads process settings from .env files and flags, and the
// page contexts that drive every chart from YAML.
package config

import (
	"bufio"
	"os"
	"strings"
)

// LoadDotEnv reads a .env file and sets variables not already in the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = unquote(strings.TrimSpace(val))
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, val)
		}
	}
	return scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// Resolve returns flagVal when set, otherwise the first non-empty environment
// variable of envKeys.
func Resolve(flagVal string, envKeys ...string) string {
	if flagVal != "" {
		return flagVal
	}
	for _, k := range envKeys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// APIURL resolves the energy-summary API base URL: the flag, then API_URL,
// then http://API_HOST:API_PORT.
func APIURL(flagVal string) string {
	if u := Resolve(flagVal, "API_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	host := os.Getenv("API_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("API_PORT")
	if port == "" {
		return "http://" + host
	}
	return "http://" + host + ":" + port
}
