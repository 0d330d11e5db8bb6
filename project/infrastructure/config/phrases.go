package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PhrasesFile は PHRASES_FILE で指定する YAML の内容です
//
//	extract_phrases:
//	  - "Can you translate the following:"
//	exclude_phrases:
//	  - "do not translate"
type PhrasesFile struct {
	ExtractPhrases []string `yaml:"extract_phrases"`
	ExcludePhrases []string `yaml:"exclude_phrases"`
}

// LoadPhrasesFile はフレーズ定義 YAML を読み込みます
func LoadPhrasesFile(path string) (*PhrasesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("PHRASES_FILE 読み込み失敗 (path=%s): %w", path, err)
	}

	var pf PhrasesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("PHRASES_FILE パース失敗 (path=%s): %w", path, err)
	}
	return &pf, nil
}
