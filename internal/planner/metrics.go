package planner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var plansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "researchd_planner_plans_total",
	Help: "Plans generated, by outcome.",
}, []string{"result"})
