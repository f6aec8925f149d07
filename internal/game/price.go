package game

import (
	"math"
	"strconv"
	"strings"
)

// RefinePrice округляет цену вниз до двух знаков после запятой.
// Пустая или нечисловая строка превращается в "0".
func RefinePrice(price string) string {
	price = strings.TrimSpace(price)
	if price == "" {
		return "0"
	}
	v, err := strconv.ParseFloat(price, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	if v < 0 {
		return strconv.FormatFloat(math.Floor(v*100)/100, 'f', -1, 64)
	}

	// для положительных floor - это отбрасывание лишних цифр в десятичной записи,
	// так не появляется ошибка вида 27123.4*100 = 2712339.999...
	whole, frac, _ := strings.Cut(strconv.FormatFloat(v, 'f', -1, 64), ".")
	if len(frac) > 2 {
		frac = frac[:2]
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// Progress доля прошедшего раунда в процентах для полосы отсчёта
func Progress(counter, period int) int {
	if period <= 0 {
		return 100
	}
	p := int(math.Round(float64(counter) / float64(period) * 100))
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
