package aggregate

import (
	"math"

	"github.com/xela07ax/devpulse/internal/domain"
)

// stableThreshold относительное изменение, ниже которого прогноз считается плоским.
const stableThreshold = 0.05

// Forecast прогноз следующего периода по ряду.
type Forecast struct {
	Current    float64
	Predicted  float64
	ChangeRate float64 // %, 0 при нулевом текущем значении
	Direction  domain.Direction
}

// Predict экстраполирует ряд на один период вперёд методом наименьших квадратов.
// Прогноз не уходит ниже нуля: все наши метрики неотрицательны.
func Predict(s domain.MetricSeries) (Forecast, error) {
	current, err := Latest(s)
	if err != nil {
		return Forecast{}, err
	}

	predicted := current
	if n := len(s.Points); n > 1 {
		// 1. Регрессия y = a + b*x по x = 0..n-1
		var sumX, sumY, sumXY, sumXX float64
		for i, p := range s.Points {
			x := float64(i)
			sumX += x
			sumY += p.Value
			sumXY += x * p.Value
			sumXX += x * x
		}
		fn := float64(n)
		slope := (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)
		intercept := (sumY - slope*sumX) / fn

		// 2. Значение в точке x = n
		predicted = math.Max(0, intercept+slope*fn)
	}

	f := Forecast{Current: current, Predicted: round2(predicted)}
	if current != 0 {
		f.ChangeRate = round2((f.Predicted - current) / current * 100)
	}
	f.Direction = forecastDirection(current, f.Predicted)
	return f, nil
}

func forecastDirection(current, predicted float64) domain.Direction {
	if current == 0 {
		return direction(current, predicted)
	}
	if math.Abs(predicted-current)/math.Abs(current) < stableThreshold {
		return domain.DirectionFlat
	}
	return direction(current, predicted)
}
