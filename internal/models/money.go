package models

import "fmt"

// Money денежная сумма в микроединицах валюты (1_000_000 = 1 единица).
// Целочисленное представление исключает накопление ошибок округления
// при большом количестве мелких начислений.
type Money int64

// MicrosPerUnit количество микроединиц в одной единице валюты
const MicrosPerUnit = 1_000_000

// String форматирует сумму в виде десятичного числа
func (m Money) String() string {
	units := int64(m) / MicrosPerUnit
	frac := int64(m) % MicrosPerUnit
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%06d", units, frac)
}

// ApplyPercent возвращает долю суммы в процентах (целочисленное деление,
// остаток отбрасывается в пользу платформы)
func (m Money) ApplyPercent(percent int) Money {
	return Money(int64(m) * int64(percent) / 100)
}
