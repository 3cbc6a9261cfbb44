package storage

import (
	"context"
	"testing"
)

func TestPickAttribute(t *testing.T) {
	v, ok, err := pickAttribute(`{"country":"DE","volume":0.5}`, "country")
	if err != nil || !ok || v != "DE" {
		t.Errorf("Ожидалось DE, получено %v %v %v", v, ok, err)
	}
	if _, ok, _ := pickAttribute(`{}`, "country"); ok {
		t.Errorf("Отсутствующий атрибут не должен находиться")
	}
	if _, _, err := pickAttribute(`not json`, "x"); err == nil {
		t.Errorf("Ожидалась ошибка разбора")
	}
}

func TestRateKey(t *testing.T) {
	if got := rateKey("tg:42"); got != "rate:tg:42" {
		t.Errorf("Неверный ключ: %s", got)
	}
}

func TestNewRedisRequiresAddress(t *testing.T) {
	if _, err := NewRedis(context.Background(), "", "states", "events"); err == nil {
		t.Errorf("Пустой адрес должен отклоняться")
	}
}
