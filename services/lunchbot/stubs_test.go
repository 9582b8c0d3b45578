package lunchbot

import (
	"context"
	"errors"
	"sync"
	"time"

	"lunchbot/lib/artifacts"
	"lunchbot/lib/generate"
	"lunchbot/lib/menu"
)

type stubImages struct {
	mutex sync.Mutex
	calls int
	url   string
	data  []byte
	err   error
}

func (s *stubImages) Name() string { return "stub" }

func (s *stubImages) GenerateImage(ctx context.Context, prompt string) (generate.Image, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls++
	if s.err != nil {
		return generate.Image{}, s.err
	}
	return generate.Image{Data: s.data, URL: s.url, Generator: "stub"}, nil
}

func (s *stubImages) Calls() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.calls
}

type stubDescriber struct {
	mutex  sync.Mutex
	texts  []string
	avoids []string
	err    error
}

func (s *stubDescriber) Describe(ctx context.Context, dishName, avoid string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.avoids = append(s.avoids, avoid)
	if s.err != nil {
		return "", s.err
	}
	if len(s.texts) == 0 {
		return "A plate of " + dishName + ".", nil
	}
	text := s.texts[0]
	s.texts = s.texts[1:]
	return text, nil
}

type memoryRemote struct {
	mutex     sync.Mutex
	objects   map[string][]byte
	uploads   int
	uploadErr error
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{objects: map[string][]byte{}}
}

func (r *memoryRemote) URL(hash string, kind artifacts.Kind) string {
	return "https://cdn.test/" + artifacts.FileName(hash, kind)
}

func (r *memoryRemote) Exists(ctx context.Context, hash string, kind artifacts.Kind) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	_, ok := r.objects[artifacts.FileName(hash, kind)]
	return ok, nil
}

func (r *memoryRemote) Upload(ctx context.Context, hash string, kind artifacts.Kind, data []byte) (string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.uploads++
	if r.uploadErr != nil {
		return "", r.uploadErr
	}
	r.objects[artifacts.FileName(hash, kind)] = data
	return r.URL(hash, kind), nil
}

type stubSender struct {
	mutex sync.Mutex
	// the first `failures` sends fail
	failures  int
	calls     int
	texts     []string
	usernames []string
}

var errDelivery = errors.New("webhook: unexpected status 502 Bad Gateway")

func (s *stubSender) Send(ctx context.Context, text, username string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errDelivery
	}
	s.texts = append(s.texts, text)
	s.usernames = append(s.usernames, username)
	return nil
}

type stubScraper struct {
	label  string
	url    string
	dishes []menu.Dish
	err    error
}

func (s stubScraper) Label() string { return s.label }
func (s stubScraper) URL() string   { return s.url }

func (s stubScraper) Scrape(ctx context.Context, today time.Time) ([]menu.Dish, error) {
	return s.dishes, s.err
}

func dish(name, source string) menu.Dish {
	return menu.Dish{
		Hash:   menu.Hash(name),
		Name:   name,
		Price:  "4,20 €",
		Diet:   menu.DietVegetarian,
		Source: source,
	}
}
