// Package cartsync коалесцирует частые изменения корзины в одну отправку
// на сервер: очередная правка заменяет еще не отправленный снапшот,
// побеждает последняя запись.
package cartsync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PushFunc отправляет снапшот корзины в хранилище.
type PushFunc func(ctx context.Context, cart map[string]int) error

// Syncer - дебаунсер с одним слотом ожидания на сессию клиента.
// Schedule по заднему фронту: таймер каждый раз перезаводится, в полете
// одновременно не больше одной отправки за окно.
type Syncer struct {
	log   *slog.Logger
	push  PushFunc
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]int // последний запланированный снапшот
	stopped bool
}

func New(log *slog.Logger, push PushFunc, delay time.Duration) *Syncer {
	return &Syncer{
		log:   log,
		push:  push,
		delay: delay,
	}
}

// Schedule планирует отправку снапшота, отменяя еще не сработавшую.
func (s *Syncer) Schedule(cart map[string]int) {
	snapshot := make(map[string]int, len(cart))
	for id, quantity := range cart {
		snapshot[id] = quantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending = snapshot
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// fire забирает отложенный снапшот и отправляет его вне блокировки
func (s *Syncer) fire() {
	s.mu.Lock()
	snapshot := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	if snapshot == nil {
		return
	}
	if err := s.push(context.Background(), snapshot); err != nil {
		// сервер остается источником истины, потерянную отправку
		// перекроет следующее изменение корзины
		s.log.Warn("cart sync push failed", slog.Any("error", err))
	}
}

// Flush немедленно отправляет отложенный снапшот, если он есть.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	snapshot := s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if snapshot == nil {
		return nil
	}
	return s.push(ctx, snapshot)
}

// Stop отменяет отложенную отправку и запрещает новые.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
