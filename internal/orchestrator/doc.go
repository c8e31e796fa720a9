// Package orchestrator проводит frequency sweep по всем проектам search root.
//
// Для каждого проекта:
//  1. StepCatalog — pending шаги (без result marker'а)
//  2. WorkQueue — порядок по убыванию веса
//  3. для каждого шага: повторная проверка marker'а, admission,
//     запуск, settle delay, проверка на падение
//  4. drain — ожидание завершения worker'ов
//  5. cleanup сгенерированных файлов (опционально)
//
// Проекты обрабатываются строго по очереди: проверки ресурсов имеют смысл
// только для worker'ов одного проекта.
//
// Ошибки делятся на классы (см. Classify): некорректный проект,
// отсутствующий worker, упавший worker, прерывание.
package orchestrator
