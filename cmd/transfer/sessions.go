package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sessionBookFile = "sessions.yaml"

// sessionBook хранит id незавершённых загрузок между запусками, ключ — сервер и имя артефакта.
// Без него повторный запуск получил бы новый id и упёрся бы в аренду прежнего.
type sessionBook struct {
	path     string
	Sessions map[string]string `yaml:"sessions"`
}

// defaultSessionBookPath — <user config dir>/resumable_lite/sessions.yaml.
func defaultSessionBookPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + sessionBookFile
	}
	return filepath.Join(dir, "resumable_lite", sessionBookFile)
}

// loadSessionBook читает файл; отсутствующий файл — пустая книга.
func loadSessionBook(path string) (*sessionBook, error) {
	b := &sessionBook{path: path, Sessions: map[string]string{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return b, nil
		}
		return nil, fmt.Errorf("read session book: %w", err)
	}
	if err = yaml.Unmarshal(raw, b); err != nil {
		return nil, fmt.Errorf("parse session book %s: %w", path, err)
	}
	if b.Sessions == nil {
		b.Sessions = map[string]string{}
	}
	return b, nil
}

func sessionKey(server, name string) string {
	return server + " " + name
}

func (b *sessionBook) Get(server, name string) string {
	return b.Sessions[sessionKey(server, name)]
}

func (b *sessionBook) Put(server, name, id string) error {
	if b.Sessions[sessionKey(server, name)] == id {
		return nil
	}
	b.Sessions[sessionKey(server, name)] = id
	return b.save()
}

func (b *sessionBook) Forget(server, name string) error {
	if _, ok := b.Sessions[sessionKey(server, name)]; !ok {
		return nil
	}
	delete(b.Sessions, sessionKey(server, name))
	return b.save()
}

// save пишет во временный файл и переименовывает, чтобы прерванная запись не портила книгу.
func (b *sessionBook) save() error {
	raw, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode session book: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("create session book dir: %w", err)
	}
	tmp := b.path + ".tmp"
	if err = os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session book: %w", err)
	}
	if err = os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replace session book: %w", err)
	}
	return nil
}
