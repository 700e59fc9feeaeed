package service

import "context"

// CountryResolver внешний коллаборатор геолокации. Разрешение best-effort:
// любая ошибка трактуется как неопределённая страна, и расчёт выручки
// использует множитель по умолчанию.
type CountryResolver interface {
	Resolve(ctx context.Context, ipAddress string) (string, error)
}

// noopCountryResolver заглушка на случай, когда геолокация не подключена
type noopCountryResolver struct{}

func NewNoopCountryResolver() CountryResolver {
	return noopCountryResolver{}
}

func (noopCountryResolver) Resolve(ctx context.Context, ipAddress string) (string, error) {
	return "", nil
}
