package library

type Config struct {
	File string `yaml:"file"`
}
