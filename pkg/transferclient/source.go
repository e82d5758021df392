package transferclient

import (
	"io"
	"os"
)

// Source — локальные байты для загрузки. Подходят *bytes.Reader и *FileSource.
type Source interface {
	io.ReaderAt
	Size() int64
}

// FileSource — файл на диске с размером, зафиксированным при открытии.
type FileSource struct {
	*os.File
	size int64
}

func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileSource{File: f, size: fi.Size()}, nil
}

func (f *FileSource) Size() int64 { return f.size }
