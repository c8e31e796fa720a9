// Package cli реализует команды sweep.
//
// # Команды
//
//   - run: запуск всех невыполненных шагов в search root
//   - status: сколько шагов осталось, без запуска
//   - watch: опрос прогресса запуска, начатого с --listen
//   - events: поток событий из RabbitMQ
//   - history, serve: журнал запусков в Postgres
//   - convert-mesh: конвертация .unv через ElmerGrid
//
// Каждая команда создаётся фабричной функцией (NewRunCmd и т.д.),
// принимающей замыкания configFn, clientFn и outputFn: они вызываются
// лениво, уже после парсинга PersistentFlags.
//
// # Вывод
//
// Данные идут в stdout (таблица через text/tabwriter или JSON с --json),
// сообщения и логи в stderr, поэтому работает pipe:
//
//	sweep status --json | jq '.projects[].pending'
//
// # Коды завершения
//
// ExitCode переводит ошибку команды в код процесса: 2 для ошибок входных
// данных, 3 для окружения, 4 для падения worker'а, 130 при прерывании.
package cli
