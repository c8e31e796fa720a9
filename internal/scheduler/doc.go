// Package scheduler решает, когда запускать следующий worker.
//
// Структура:
//   - queue.go     — WorkQueue: порядок шагов по весу
//   - admission.go — AdmissionController: автомат ADMIT_FIRST → STEADY_STATE → DRAIN → DONE
//
// Использование:
//
//	ctrl := scheduler.New(scheduler.Config{
//	    Processes:  processTable,
//	    Sampler:    sampler,
//	    Launched:   registry, // опционально
//	    WorkerName: "ElmerSolver",
//	    Logger:     logger,
//	})
//
//	ctrl.Begin(projectLogger)
//	for _, step := range scheduler.Order(pending) {
//	    decision, err := ctrl.Admit(ctx)
//	    ...
//	    ctrl.Settle(ctx, decision)
//	}
//	ctrl.Drain(ctx)
//
// Admission — эвристика, а не гарантия. Снимок ресурсов берётся один раз
// на итерацию опроса, поэтому:
//   - ложный отказ: кратковременный всплеск CPU за окно измерения
//     откладывает запуск на один settle delay;
//   - ложное разрешение: worker, ещё не набравший память, занижает peak_rss,
//     поэтому после каждого запуска выдерживается settle delay.
package scheduler
