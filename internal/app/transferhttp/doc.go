// Package transferhttp реализует HTTP-интерфейс возобновляемой загрузки поверх
// transfersvc. Основные эндпоинты:
//   - PUT /upload/{name} — принимает чанк с `Content-Range: bytes a-b/T` и дописывает его,
//     только если a равно текущему размеру артефакта (иначе 416 + `bytes */size`).
//   - HEAD /upload/{name} — отдаёт сохранённый размер в Content-Length и X-Size.
//   - GET /download/{name} — отдаёт артефакт целиком или диапазон из заголовка Range (206).
//   - HEAD /download/{name} — те же заголовки без тела.
//   - POST /admin/gc — ручной сбор брошенных незавершённых загрузок.
//   - GET /health — число артефактов и объём сохранённых байт.
package transferhttp
